package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/lifecycle"
	"github.com/shopspring/decimal"
)

const (
	maxOrderNumberRetries = 3
	maxLineQuantity       = 999
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrCustomerName        = errors.New("customer_name is required")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrInvalidDeliveryFee  = errors.New("invalid delivery_fee")
	ErrOrderTooLarge       = errors.New("order total is too large")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CreatedBy       uuid.UUID
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Notes           string
	DeliveryFee     string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order creation.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates, prices, and creates an order atomically.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (concurrent transactions can read the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, ErrCustomerName
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	deliveryFee := decimal.Zero
	if req.DeliveryFee != "" {
		fee, err := decimal.NewFromString(req.DeliveryFee)
		if err != nil || fee.IsNegative() || !database.Fits(fee, database.MoneyPlaces) {
			return nil, ErrInvalidDeliveryFee
		}
		deliveryFee = fee
	}

	// Parse ids up front so a malformed request never opens a transaction.
	menuIDs := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("item[%d]: %w, at most %d portions per line", i, ErrInvalidQuantity, maxLineQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuIDs[i] = id
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, menuIDs, deliveryFee)
		if err == nil {
			return result, nil
		}
		if database.IsViolation(err, database.UniqueViolation, "orders_order_number_key") {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, menuIDs []uuid.UUID, deliveryFee decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%04d", nextNum)

	// --- Snapshot menu items and price lines ---
	subtotal := decimal.Zero
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))
	prep := make([]lifecycle.PrepLine, 0, len(req.Items))

	for i, item := range req.Items {
		menuItem, err := store.GetMenuItem(ctx, menuIDs[i])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %s: %w", i, menuItem.Name, ErrMenuItemUnavailable)
		}

		unitPrice := database.ToDecimal(menuItem.Price)
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineTotal)

		lines = append(lines, database.CreateOrderItemParams{
			MenuItemID: database.UUID(menuItem.ID),
			Name:       menuItem.Name,
			Quantity:   item.Quantity,
			UnitPrice:  database.ToNumeric(unitPrice, database.MoneyPlaces),
			Subtotal:   database.ToNumeric(lineTotal, database.MoneyPlaces),
			Notes:      database.Text(item.Notes),
		})
		prep = append(prep, lifecycle.PrepLine{PrepMinutes: menuItem.PrepMinutes, Quantity: item.Quantity})
	}

	total := subtotal.Add(deliveryFee)
	if !database.Fits(total, database.MoneyPlaces) {
		return nil, ErrOrderTooLarge
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:      orderNumber,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    database.Text(req.CustomerPhone),
		DeliveryAddress:  database.Text(req.DeliveryAddress),
		Notes:            database.Text(req.Notes),
		Subtotal:         database.ToNumeric(subtotal, database.MoneyPlaces),
		DeliveryFee:      database.ToNumeric(deliveryFee, database.MoneyPlaces),
		TotalAmount:      database.ToNumeric(total, database.MoneyPlaces),
		EstimatedMinutes: lifecycle.EstimateMinutes(prep),
		CreatedBy:        req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}
