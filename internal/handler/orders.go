package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/lifecycle"
	"github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/service"
	"github.com/kitchenops/api/internal/ws"
	"go.uber.org/zap"
)

// OrderStore defines the read methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderCreator creates orders. Satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderTransitioner moves orders through their lifecycle.
// Satisfied by *service.TransitionService.
type OrderTransitioner interface {
	Transition(ctx context.Context, req service.TransitionRequest) (*service.TransitionResult, error)
	Reassign(ctx context.Context, req service.ReassignRequest) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store       OrderStore
	creator     OrderCreator
	transitions OrderTransitioner
	hub         Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, creator OrderCreator, transitions OrderTransitioner, hub Broadcaster, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		store:       store,
		creator:     creator,
		transitions: transitions,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterRoutes registers order endpoints. Mounted under /orders.
// Creating and reassigning are further restricted by role.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleKitchenStaff))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin))
		r.Patch("/{id}/assignment", h.Reassign)
	})
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	DeliveryAddress string                   `json:"delivery_address"`
	Notes           string                   `json:"notes"`
	DeliveryFee     string                   `json:"delivery_fee"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type updateStatusRequest struct {
	Status     string `json:"status"`
	AssigneeID string `json:"assignee_id"`
	Reason     string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type reassignRequest struct {
	ChefID     string `json:"chef_id"`
	DeliveryID string `json:"delivery_id"`
}

type orderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	CustomerName         string              `json:"customer_name"`
	CustomerPhone        *string             `json:"customer_phone"`
	DeliveryAddress      *string             `json:"delivery_address"`
	Notes                *string             `json:"notes"`
	Status               string              `json:"status"`
	Subtotal             string              `json:"subtotal"`
	DeliveryFee          string              `json:"delivery_fee"`
	TotalAmount          string              `json:"total_amount"`
	EstimatedMinutes     int32               `json:"estimated_minutes"`
	AssignedChefID       *uuid.UUID          `json:"assigned_chef_id"`
	AssignedDeliveryID   *uuid.UUID          `json:"assigned_delivery_id"`
	CancelReason         *string             `json:"cancel_reason"`
	CreatedBy            uuid.UUID           `json:"created_by"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	CookingStartedAt     *time.Time          `json:"cooking_started_at"`
	DispatchedAt         *time.Time          `json:"dispatched_at"`
	DeliveredAt          *time.Time          `json:"delivered_at"`
	CancelledAt          *time.Time          `json:"cancelled_at"`
	Priority             string              `json:"priority"`
	TimeRemainingSeconds int64               `json:"time_remaining_seconds"`
	Overdue              bool                `json:"overdue"`
	NextStatuses         []string            `json:"next_statuses"`
	Items                []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID  `json:"id"`
	MenuItemID *uuid.UUID `json:"menu_item_id"`
	Name       string     `json:"name"`
	Quantity   int32      `json:"quantity"`
	UnitPrice  string     `json:"unit_price"`
	Subtotal   string     `json:"subtotal"`
	Notes      *string    `json:"notes"`
}

type statusChangedEvent struct {
	Order          orderResponse `json:"order"`
	PreviousStatus string        `json:"previous_status"`
}

// orderAssignedEvent announces a new chef or rider; the status is unchanged.
type orderAssignedEvent struct {
	Order orderResponse `json:"order"`
}

func snapshotOf(o database.Order) lifecycle.Snapshot {
	return lifecycle.Snapshot{Status: o.Status, CreatedAt: o.CreatedAt, EstimatedMinutes: o.EstimatedMinutes}
}

func toOrderResponse(o database.Order, now time.Time) orderResponse {
	snap := snapshotOf(o)
	left, overdue := lifecycle.TimeRemaining(snap, now)
	return orderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		CustomerName:         o.CustomerName,
		CustomerPhone:        optionalText(o.CustomerPhone),
		DeliveryAddress:      optionalText(o.DeliveryAddress),
		Notes:                optionalText(o.Notes),
		Status:               o.Status,
		Subtotal:             money(o.Subtotal),
		DeliveryFee:          money(o.DeliveryFee),
		TotalAmount:          money(o.TotalAmount),
		EstimatedMinutes:     o.EstimatedMinutes,
		AssignedChefID:       optionalUUID(o.AssignedChefID),
		AssignedDeliveryID:   optionalUUID(o.AssignedDeliveryID),
		CancelReason:         optionalText(o.CancelReason),
		CreatedBy:            o.CreatedBy,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		CookingStartedAt:     optionalTime(o.CookingStartedAt),
		DispatchedAt:         optionalTime(o.DispatchedAt),
		DeliveredAt:          optionalTime(o.DeliveredAt),
		CancelledAt:          optionalTime(o.CancelledAt),
		Priority:             lifecycle.Priority(snap, now),
		TimeRemainingSeconds: int64(left / time.Second),
		Overdue:              overdue,
		NextStatuses:         lifecycle.NextStatuses(o.Status),
	}
}

func toOrderItemResponses(items []database.OrderItem) []orderItemResponse {
	out := make([]orderItemResponse, len(items))
	for i, it := range items {
		out[i] = orderItemResponse{
			ID:         it.ID,
			MenuItemID: optionalUUID(it.MenuItemID),
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  money(it.UnitPrice),
			Subtotal:   money(it.Subtotal),
			Notes:      optionalText(it.Notes),
		}
	}
	return out
}

// --- Handlers ---

// Create places a new order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity, Notes: it.Notes}
	}

	result, err := h.creator.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:       claims.UserID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		DeliveryFee:     req.DeliveryFee,
		Items:           items,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrCustomerName),
			errors.Is(err, service.ErrInvalidMenuItemID),
			errors.Is(err, service.ErrMenuItemNotFound),
			errors.Is(err, service.ErrInvalidDeliveryFee),
			errors.Is(err, service.ErrOrderTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrMenuItemUnavailable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			internalError(w, h.logger, "create order", err)
		}
		return
	}

	resp := toOrderResponse(result.Order, h.now())
	resp.Items = toOrderItemResponses(result.Items)

	publish(h.hub, h.logger, ws.OrderAudience, enum.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders newest first. Delivery staff only ever see the orders
// assigned to them.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	params := database.ListOrdersParams{}
	params.Limit, params.Offset = pagination(r)

	if s := q.Get("status"); s != "" {
		if !enum.IsOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = database.Text(s)
	}
	if a := q.Get("assigned_to"); a != "" {
		id, err := uuid.Parse(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		params.AssignedTo = database.UUID(id)
	}
	if claims.Role == enum.RoleDeliveryStaff {
		params.AssignedTo = database.UUID(claims.UserID)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		internalError(w, h.logger, "list orders", err)
		return
	}

	now := h.now()
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, now)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": resp,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// Get returns one order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, h.logger, "get order", err)
		return
	}
	if claims.Role == enum.RoleDeliveryStaff && !isDeliveryAssignee(order, claims.UserID) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		internalError(w, h.logger, "list order items", err)
		return
	}

	resp := toOrderResponse(order, h.now())
	resp.Items = toOrderItemResponses(items)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order to a new status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	h.transition(w, r, req)
}

// Cancel is a shortcut for a transition to cancelled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.transition(w, r, updateStatusRequest{Status: enum.OrderStatusCancelled, Reason: req.Reason})
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, req updateStatusRequest) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	result, err := h.transitions.Transition(r.Context(), service.TransitionRequest{
		OrderID:    id,
		ActorID:    claims.UserID,
		ActorRole:  claims.Role,
		Status:     req.Status,
		AssigneeID: req.AssigneeID,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeTransitionError(w, "transition order", err)
		return
	}

	resp := toOrderResponse(result.Order, h.now())
	publish(h.hub, h.logger, ws.OrderAudience, enum.EventOrderStatusChanged, statusChangedEvent{
		Order:          resp,
		PreviousStatus: result.Previous,
	})
	publishStockChanges(h.hub, h.logger, result.Consumed)

	writeJSON(w, http.StatusOK, resp)
}

// Reassign swaps the chef or delivery partner of a live order.
func (h *OrderHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.transitions.Reassign(r.Context(), service.ReassignRequest{
		OrderID:    id,
		ChefID:     req.ChefID,
		DeliveryID: req.DeliveryID,
	})
	if err != nil {
		h.writeTransitionError(w, "reassign order", err)
		return
	}

	resp := toOrderResponse(order, h.now())
	publish(h.hub, h.logger, ws.OrderAudience, enum.EventOrderAssigned, orderAssignedEvent{Order: resp})
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) writeTransitionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidAssigneeID),
		errors.Is(err, service.ErrAssigneeNotFound),
		errors.Is(err, service.ErrAssigneeRole),
		errors.Is(err, service.ErrNothingToReassign):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrTransitionNotAllowed),
		errors.Is(err, lifecycle.ErrNotAssignee),
		errors.Is(err, service.ErrActorInactive):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, service.ErrStatusConflict),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, lifecycle.ErrNoDeliveryPartner):
		writeError(w, http.StatusConflict, err.Error())
	default:
		internalError(w, h.logger, op, err)
	}
}

func isDeliveryAssignee(o database.Order, userID uuid.UUID) bool {
	return o.AssignedDeliveryID.Valid && uuid.UUID(o.AssignedDeliveryID.Bytes) == userID
}
