package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startHub runs a hub until the test finishes.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, role string, buffer int) *Client {
	return &Client{
		hub:    hub,
		userID: uuid.New(),
		role:   role,
		send:   make(chan []byte, buffer),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("%s client did not receive message", c.role)
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("%s client should not receive %s", c.role, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, "kitchen_staff", 8)

	hub.register <- client

	require.Eventually(t, func() bool { return hub.ClientCount("kitchen_staff") == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	client1 := mockClient(hub, "admin", 8)
	client2 := mockClient(hub, "admin", 8)

	hub.register <- client1
	hub.register <- client2
	require.Eventually(t, func() bool { return hub.ClientCount("admin") == 2 }, time.Second, 5*time.Millisecond)

	hub.unregister <- client1
	require.Eventually(t, func() bool { return hub.ClientCount("admin") == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- client2
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.rooms["admin"]
		return !ok
	}, time.Second, 5*time.Millisecond)

	// A second unregister of the same client is a no-op
	hub.unregister <- client2
}

func TestBroadcastOrderAudience(t *testing.T) {
	hub := startHub(t)

	admin := mockClient(hub, "admin", 8)
	kitchen := mockClient(hub, "kitchen_staff", 8)
	delivery := mockClient(hub, "delivery_staff", 8)
	inventory := mockClient(hub, "inventory_manager", 8)
	for _, c := range []*Client{admin, kitchen, delivery, inventory} {
		hub.register <- c
	}

	ev, err := NewEvent("order.created", map[string]string{"order_number": "ORD-0001"})
	require.NoError(t, err)
	hub.Broadcast(OrderAudience, ev)

	for _, c := range []*Client{admin, kitchen, delivery} {
		got := receive(t, c)
		assert.Equal(t, "order.created", got.Type)
		assert.JSONEq(t, `{"order_number":"ORD-0001"}`, string(got.Payload))
	}
	assertSilent(t, inventory)
}

func TestBroadcastInventoryAudience(t *testing.T) {
	hub := startHub(t)

	inventory := mockClient(hub, "inventory_manager", 8)
	kitchen := mockClient(hub, "kitchen_staff", 8)
	delivery := mockClient(hub, "delivery_staff", 8)
	for _, c := range []*Client{inventory, kitchen, delivery} {
		hub.register <- c
	}

	ev, err := NewEvent("inventory.low_stock", map[string]string{"name": "Flour"})
	require.NoError(t, err)
	hub.Broadcast(InventoryAudience, ev)

	assert.Equal(t, "inventory.low_stock", receive(t, inventory).Type)
	assert.Equal(t, "inventory.low_stock", receive(t, kitchen).Type)
	assertSilent(t, delivery)
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := startHub(t)
	kitchen := mockClient(hub, "kitchen_staff", 8)
	hub.register <- kitchen

	hub.Broadcast([]string{"inventory_manager"}, Event{Type: "inventory.updated", Payload: json.RawMessage(`{}`)})

	assertSilent(t, kitchen)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := mockClient(hub, "delivery_staff", 1)
	hub.register <- slow

	ev := Event{Type: "order.status_changed", Payload: json.RawMessage(`{}`)}
	hub.Broadcast(OrderAudience, ev)
	hub.Broadcast(OrderAudience, ev)

	require.Eventually(t, func() bool { return hub.ClientCount("delivery_staff") == 0 }, time.Second, 5*time.Millisecond)

	// The buffered message is still readable, then the channel is closed
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := mockClient(hub, "admin", 8)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount("admin") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-hub.done

	_, ok := <-client.send
	assert.False(t, ok)

	// Broadcasting after shutdown returns instead of blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Broadcast(OrderAudience, Event{Type: "order.created"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after hub stopped")
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("inventory.updated", struct {
		ID    string `json:"id"`
		Stock string `json:"current_stock"`
	}{"abc", "12.500"})
	require.NoError(t, err)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"inventory.updated","payload":{"id":"abc","current_stock":"12.500"}}`, string(data))

	_, err = NewEvent("bad", make(chan int))
	assert.Error(t, err)
}
