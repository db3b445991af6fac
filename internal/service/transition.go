package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/lifecycle"
)

// Errors returned by the transition service.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderClosed       = errors.New("order is already delivered or cancelled")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrInvalidAssigneeID = errors.New("invalid assignee_id")
	ErrAssigneeNotFound  = errors.New("assignee not found")
	ErrAssigneeRole      = errors.New("assignee does not have the required role")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNothingToReassign = errors.New("chef_id or delivery_id is required")
	ErrActorInactive     = errors.New("acting user is deactivated or no longer kitchen staff")
)

// TransitionStore defines the DB methods needed to move orders through
// their lifecycle. Satisfied by *database.Queries.
type TransitionStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListDeliveryCandidates(ctx context.Context) ([]database.ListDeliveryCandidatesRow, error)
	TransitionOrder(ctx context.Context, arg database.TransitionOrderParams) (database.Order, error)
	ReassignOrder(ctx context.Context, arg database.ReassignOrderParams) (database.Order, error)
	ListOrderConsumption(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderConsumptionRow, error)
	AdjustStock(ctx context.Context, arg database.AdjustStockParams) (database.InventoryItem, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

type NewTransitionStore func(db database.DBTX) TransitionStore

// TransitionRequest asks to move an order into Status on behalf of an actor.
type TransitionRequest struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	ActorRole  string
	Status     string
	AssigneeID string
	Reason     string
}

// TransitionResult carries the updated order plus any inventory rows the
// transition consumed from.
type TransitionResult struct {
	Order    database.Order
	Previous string
	Consumed []database.InventoryItem
}

// ReassignRequest changes the staff on a live order. Empty ids keep the
// current assignment.
type ReassignRequest struct {
	OrderID    uuid.UUID
	ChefID     string
	DeliveryID string
}

// TransitionService applies status changes with their side effects.
type TransitionService struct {
	pool     TxBeginner
	newStore NewTransitionStore
}

func NewTransitionService(pool TxBeginner, newStore NewTransitionStore) *TransitionService {
	return &TransitionService{pool: pool, newStore: newStore}
}

// Transition validates and applies one lifecycle step. Starting to cook
// deducts recipe ingredients in the same transaction, so the order and the
// stock either both change or neither does.
func (s *TransitionService) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !enum.IsOrderStatus(req.Status) {
		return nil, lifecycle.ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	isAssignee := order.AssignedDeliveryID.Valid && uuid.UUID(order.AssignedDeliveryID.Bytes) == req.ActorID
	if err := lifecycle.CanActorTransition(req.ActorRole, order.Status, req.Status, isAssignee); err != nil {
		return nil, err
	}

	params := database.TransitionOrderParams{
		ID:         order.ID,
		FromStatus: order.Status,
		ToStatus:   req.Status,
	}

	switch req.Status {
	case enum.OrderStatusCooking:
		var chefID uuid.UUID
		if req.AssigneeID != "" {
			chefID, err = s.checkAssignee(ctx, store, req.AssigneeID, enum.RoleKitchenStaff, enum.RoleAdmin)
		} else {
			chefID, err = s.checkActor(ctx, store, req.ActorID)
		}
		if err != nil {
			return nil, err
		}
		params.ChefID = database.UUID(chefID)

	case enum.OrderStatusOutForDelivery:
		var partnerID uuid.UUID
		if req.AssigneeID != "" {
			partnerID, err = s.checkAssignee(ctx, store, req.AssigneeID, enum.RoleDeliveryStaff)
		} else {
			partnerID, err = pickPartner(ctx, store)
		}
		if err != nil {
			return nil, err
		}
		params.DeliveryID = database.UUID(partnerID)

	case enum.OrderStatusCancelled:
		params.CancelReason = database.Text(req.Reason)
	}

	updated, err := store.TransitionOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("transition order: %w", err)
	}

	result := &TransitionResult{Order: updated, Previous: order.Status}

	if req.Status == enum.OrderStatusCooking {
		result.Consumed, err = consumeIngredients(ctx, store, order.ID, req.ActorID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// Reassign swaps the chef or delivery partner on an order that is not yet
// finished. Only the roles are checked; who may call this is the caller's
// concern.
func (s *TransitionService) Reassign(ctx context.Context, req ReassignRequest) (database.Order, error) {
	if req.ChefID == "" && req.DeliveryID == "" {
		return database.Order{}, ErrNothingToReassign
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if enum.IsTerminal(order.Status) {
		return database.Order{}, ErrOrderClosed
	}

	params := database.ReassignOrderParams{ID: order.ID}
	if req.ChefID != "" {
		id, err := s.checkAssignee(ctx, store, req.ChefID, enum.RoleKitchenStaff, enum.RoleAdmin)
		if err != nil {
			return database.Order{}, err
		}
		params.ChefID = database.UUID(id)
	}
	if req.DeliveryID != "" {
		id, err := s.checkAssignee(ctx, store, req.DeliveryID, enum.RoleDeliveryStaff)
		if err != nil {
			return database.Order{}, err
		}
		params.DeliveryID = database.UUID(id)
	}

	updated, err := store.ReassignOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderClosed
		}
		return database.Order{}, fmt.Errorf("reassign order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// checkAssignee resolves an assignee id to an active user holding one of roles.
func (s *TransitionService) checkAssignee(ctx context.Context, store TransitionStore, rawID string, roles ...string) (uuid.UUID, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, ErrInvalidAssigneeID
	}
	user, err := store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrAssigneeNotFound
		}
		return uuid.Nil, fmt.Errorf("get assignee: %w", err)
	}
	for _, r := range roles {
		if user.Role == r {
			return user.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: %s is %s", ErrAssigneeRole, user.FullName, user.Role)
}

// checkActor makes sure a caller taking an order as chef is still an active
// kitchen user. Their token may outlive a deactivation or role change.
func (s *TransitionService) checkActor(ctx context.Context, store TransitionStore, actorID uuid.UUID) (uuid.UUID, error) {
	id, err := s.checkAssignee(ctx, store, actorID.String(), enum.RoleKitchenStaff, enum.RoleAdmin)
	if errors.Is(err, ErrAssigneeNotFound) || errors.Is(err, ErrAssigneeRole) {
		return uuid.Nil, ErrActorInactive
	}
	return id, err
}

func pickPartner(ctx context.Context, store TransitionStore) (uuid.UUID, error) {
	rows, err := store.ListDeliveryCandidates(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list delivery candidates: %w", err)
	}
	candidates := make([]lifecycle.Candidate, len(rows))
	for i, r := range rows {
		candidates[i] = lifecycle.Candidate{
			UserID:       r.ID,
			Name:         r.FullName,
			ActiveOrders: r.ActiveOrders,
		}
		if r.LastDispatchedAt.Valid {
			candidates[i].LastDispatchedAt = r.LastDispatchedAt.Time
		}
	}
	best, err := lifecycle.PickDeliveryPartner(candidates)
	if err != nil {
		return uuid.Nil, err
	}
	return best.UserID, nil
}

// consumeIngredients deducts the order's recipe totals from stock and
// records one consumption movement per inventory item.
func consumeIngredients(ctx context.Context, store TransitionStore, orderID, actorID uuid.UUID) ([]database.InventoryItem, error) {
	rows, err := store.ListOrderConsumption(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order consumption: %w", err)
	}

	consumed := make([]database.InventoryItem, 0, len(rows))
	for _, r := range rows {
		change := database.ToNumeric(database.ToDecimal(r.Required).Neg(), database.QuantityPlaces)

		item, err := store.AdjustStock(ctx, database.AdjustStockParams{
			ID:     r.InventoryItemID,
			Change: change,
		})
		if err != nil {
			if database.IsViolation(err, database.CheckViolation, "inventory_items_current_stock_check") {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, r.Name)
			}
			return nil, fmt.Errorf("consume %s: %w", r.Name, err)
		}

		if _, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
			InventoryItemID: r.InventoryItemID,
			Change:          change,
			Reason:          enum.MovementConsumption,
			OrderID:         database.UUID(orderID),
			CreatedBy:       database.UUID(actorID),
		}); err != nil {
			return nil, fmt.Errorf("record consumption: %w", err)
		}

		consumed = append(consumed, item)
	}
	return consumed, nil
}
