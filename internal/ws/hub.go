package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kitchenops/api/internal/enum"
	"go.uber.org/zap"
)

// Audiences for the two event families.
var (
	OrderAudience     = []string{enum.RoleAdmin, enum.RoleKitchenStaff, enum.RoleDeliveryStaff}
	InventoryAudience = []string{enum.RoleAdmin, enum.RoleInventoryManager, enum.RoleKitchenStaff}
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event of the given type.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: b}, nil
}

// roleEvent routes an event to the rooms of a set of roles
type roleEvent struct {
	Roles []string
	Event Event
}

// Hub maintains the set of active clients, grouped into one room per staff
// role, and fans events out to them.
type Hub struct {
	// Registered clients by role
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roleEvent

	// done is closed when Run returns
	done chan struct{}

	logger *zap.Logger

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roleEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// On exit every client's send channel is closed so their pumps stop.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for role, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, role)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.role] == nil {
				h.rooms[client.role] = make(map[*Client]bool)
			}
			h.rooms[client.role][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(ev.Event)
			if err != nil {
				h.logger.Error("marshal ws event", zap.String("type", ev.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for _, role := range ev.Roles {
				for client := range h.rooms[role] {
					select {
					case client.send <- message:
					default:
						// Client's send buffer is full, drop it
						h.logger.Warn("dropping slow ws client", zap.String("role", role))
						h.removeLocked(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.role]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, client.role)
	}
}

// Broadcast queues an event for every client whose role is in roles.
// It does not block once the hub has stopped.
func (h *Hub) Broadcast(roles []string, event Event) {
	select {
	case h.broadcast <- &roleEvent{Roles: roles, Event: event}:
	case <-h.done:
	}
}

// ClientCount reports how many clients are connected for a role.
func (h *Hub) ClientCount(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[role])
}
