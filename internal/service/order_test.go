package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
)

// newTestService creates an OrderService with mocked dependencies.
// store is the mock returned by the NewOrderStore factory.
func newTestService(store *mockStore) (*OrderService, *mockTx) {
	pool, tx := newPool()
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockStore with sensible defaults for a basic order.
// Individual tests override the functions they care about.
func defaultStore(menu ...database.MenuItem) *mockStore {
	byID := make(map[uuid.UUID]database.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}
	return &mockStore{
		getNextOrderNumberFn: func(ctx context.Context) (int32, error) {
			return 1, nil
		},
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			if m, ok := byID[id]; ok {
				return m, nil
			}
			return database.MenuItem{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:               uuid.New(),
				OrderNumber:      arg.OrderNumber,
				CustomerName:     arg.CustomerName,
				Status:           enum.OrderStatusPending,
				Subtotal:         arg.Subtotal,
				DeliveryFee:      arg.DeliveryFee,
				TotalAmount:      arg.TotalAmount,
				EstimatedMinutes: arg.EstimatedMinutes,
				CreatedBy:        arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				Name:       arg.Name,
				Quantity:   arg.Quantity,
				UnitPrice:  arg.UnitPrice,
				Subtotal:   arg.Subtotal,
				Notes:      arg.Notes,
			}, nil
		},
	}
}

func burger() database.MenuItem {
	return database.MenuItem{
		ID:          uuid.New(),
		Name:        "Smash Burger",
		Price:       makeNumeric("12.50"),
		PrepMinutes: 12,
		IsAvailable: true,
	}
}

func fries() database.MenuItem {
	return database.MenuItem{
		ID:          uuid.New(),
		Name:        "Fries",
		Price:       makeNumeric("4.25"),
		PrepMinutes: 6,
		IsAvailable: true,
	}
}

func basicReq(menuItemID string) CreateOrderRequest {
	return CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Dana",
		Items: []CreateOrderItemRequest{
			{MenuItemID: menuItemID, Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	req := basicReq(uuid.NewString())
	req.Items = nil

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got %v", err)
	}
}

func TestCreateOrder_MissingCustomerName(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	req := basicReq(uuid.NewString())
	req.CustomerName = "   "

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrCustomerName) {
		t.Fatalf("expected ErrCustomerName, got %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	req := basicReq(uuid.NewString())
	req.Items[0].Quantity = 0

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if !strings.Contains(err.Error(), "item[0]") {
		t.Errorf("expected item index in error, got %v", err)
	}
}

func TestCreateOrder_QuantityTooLarge(t *testing.T) {
	item := burger()
	store := defaultStore(item)
	store.getMenuItemFn = func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
		t.Fatal("an oversized line must be rejected before the transaction")
		return database.MenuItem{}, nil
	}
	svc, _ := newTestService(store)
	req := basicReq(item.ID.String())
	req.Items[0].Quantity = 2147483647

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCreateOrder_FreeDishLargeQuantityEstimate(t *testing.T) {
	item := burger()
	item.Price = makeNumeric("0.00")
	item.PrepMinutes = 60
	svc, _ := newTestService(defaultStore(item))
	req := basicReq(item.ID.String())
	req.Items[0].Quantity = 999

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Order.EstimatedMinutes; got != 120 {
		t.Errorf("estimated minutes: got %d, want 120", got)
	}
}

func TestCreateOrder_TotalTooLarge(t *testing.T) {
	item := burger()
	item.Price = makeNumeric("9999999999.99")
	svc, tx := newTestService(defaultStore(item))

	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if !errors.Is(err, ErrOrderTooLarge) {
		t.Fatalf("expected ErrOrderTooLarge, got %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
}

func TestCreateOrder_InvalidMenuItemID(t *testing.T) {
	svc, _ := newTestService(defaultStore())

	_, err := svc.CreateOrder(context.Background(), basicReq("not-a-uuid"))
	if !errors.Is(err, ErrInvalidMenuItemID) {
		t.Fatalf("expected ErrInvalidMenuItemID, got %v", err)
	}
}

func TestCreateOrder_InvalidDeliveryFee(t *testing.T) {
	for _, fee := range []string{"abc", "-1.00", "1e12"} {
		svc, _ := newTestService(defaultStore())
		req := basicReq(uuid.NewString())
		req.DeliveryFee = fee

		_, err := svc.CreateOrder(context.Background(), req)
		if !errors.Is(err, ErrInvalidDeliveryFee) {
			t.Errorf("fee %q: expected ErrInvalidDeliveryFee, got %v", fee, err)
		}
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	svc, tx := newTestService(defaultStore())

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.NewString()))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
}

func TestCreateOrder_MenuItemUnavailable(t *testing.T) {
	item := burger()
	item.IsAvailable = false
	svc, _ := newTestService(defaultStore(item))

	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got %v", err)
	}
}

func TestCreateOrder_BeginError(t *testing.T) {
	item := burger()
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return defaultStore(item) })

	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin tx error, got %v", err)
	}
}

// =====================
// Pricing tests
// =====================

func TestCreateOrder_BasicPrice(t *testing.T) {
	item := burger()
	store := defaultStore(item)

	var captured database.CreateOrderParams
	create := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return create(ctx, arg)
	}
	var capturedItem database.CreateOrderItemParams
	createItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		capturedItem = arg
		return createItem(ctx, arg)
	}

	svc, tx := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected commit")
	}

	// Name and price are snapshotted from the menu
	if capturedItem.Name != "Smash Burger" {
		t.Errorf("item name: got %q", capturedItem.Name)
	}
	if !numericEquals(capturedItem.UnitPrice, "12.50") {
		t.Errorf("item unit_price: got %v, want 12.50", database.ToDecimal(capturedItem.UnitPrice))
	}
	// subtotal = 12.50 * 2 = 25.00
	if !numericEquals(capturedItem.Subtotal, "25.00") {
		t.Errorf("item subtotal: got %v, want 25.00", database.ToDecimal(capturedItem.Subtotal))
	}
	if !numericEquals(captured.Subtotal, "25.00") {
		t.Errorf("order subtotal: got %v, want 25.00", database.ToDecimal(captured.Subtotal))
	}
	if !numericEquals(captured.TotalAmount, "25.00") {
		t.Errorf("order total: got %v, want 25.00", database.ToDecimal(captured.TotalAmount))
	}
	// 12 minutes for the burger plus one for the second portion
	if captured.EstimatedMinutes != 13 {
		t.Errorf("estimated minutes: got %d, want 13", captured.EstimatedMinutes)
	}
	if captured.CustomerName != "Dana" {
		t.Errorf("customer name: got %q", captured.CustomerName)
	}
	if len(result.Items) != 1 || result.Order.Status != enum.OrderStatusPending {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCreateOrder_MultipleItemsWithDeliveryFee(t *testing.T) {
	b, f := burger(), fries()
	store := defaultStore(b, f)

	var captured database.CreateOrderParams
	create := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return create(ctx, arg)
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:       uuid.New(),
		CustomerName:    "Lee",
		DeliveryAddress: "12 Side St",
		DeliveryFee:     "3.00",
		Items: []CreateOrderItemRequest{
			{MenuItemID: b.ID.String(), Quantity: 1, Notes: "no onions"},
			{MenuItemID: f.ID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// subtotal = 12.50 + 3 * 4.25 = 25.25
	if !numericEquals(captured.Subtotal, "25.25") {
		t.Errorf("order subtotal: got %v, want 25.25", database.ToDecimal(captured.Subtotal))
	}
	if !numericEquals(captured.DeliveryFee, "3.00") {
		t.Errorf("delivery fee: got %v, want 3.00", database.ToDecimal(captured.DeliveryFee))
	}
	if !numericEquals(captured.TotalAmount, "28.25") {
		t.Errorf("order total: got %v, want 28.25", database.ToDecimal(captured.TotalAmount))
	}
	// slowest dish 12 + 3 extra portions
	if captured.EstimatedMinutes != 15 {
		t.Errorf("estimated minutes: got %d, want 15", captured.EstimatedMinutes)
	}
	if !captured.DeliveryAddress.Valid || captured.DeliveryAddress.String != "12 Side St" {
		t.Errorf("delivery address: got %+v", captured.DeliveryAddress)
	}
	if captured.CustomerPhone.Valid {
		t.Error("empty phone should be NULL")
	}
	if len(result.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(result.Items))
	}
	if result.Items[0].Notes.String != "no onions" {
		t.Errorf("item notes: got %+v", result.Items[0].Notes)
	}
	for _, it := range result.Items {
		if it.OrderID != result.Order.ID {
			t.Errorf("item %s not linked to order", it.Name)
		}
	}
}

// =====================
// Order number tests
// =====================

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	item := burger()
	store := defaultStore(item)
	store.getNextOrderNumberFn = func(ctx context.Context) (int32, error) { return 42, nil }

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.OrderNumber != "ORD-0042" {
		t.Errorf("order number: got %q, want ORD-0042", result.Order.OrderNumber)
	}
}

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	item := burger()
	store := defaultStore(item)

	createCallCount := 0
	create := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_order_number_key",
			}
		}
		return create(ctx, arg)
	}

	// GetNextOrderNumber is called once per attempt
	orderNumCallCount := 0
	store.getNextOrderNumberFn = func(ctx context.Context) (int32, error) {
		orderNumCallCount++
		return int32(orderNumCallCount), nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 create attempts, got %d", createCallCount)
	}
	if result.Order.OrderNumber != "ORD-0002" {
		t.Errorf("order number: got %q, want ORD-0002", result.Order.OrderNumber)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	item := burger()
	store := defaultStore(item)

	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_order_number_key",
		}
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
	if calls != maxOrderNumberRetries {
		t.Errorf("expected %d attempts, got %d", maxOrderNumberRetries, calls)
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	item := burger()
	store := defaultStore(item)

	callCount := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, errors.New("some other DB error")
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("expected 1 attempt, got %d", callCount)
	}
}

func TestCreateOrder_OtherUniqueViolationNotRetried(t *testing.T) {
	item := burger()
	store := defaultStore(item)

	callCount := 0
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		callCount++
		return database.OrderItem{}, &pgconn.PgError{Code: "23505", ConstraintName: "order_items_pkey"}
	}

	svc, _ := newTestService(store)
	if _, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String())); err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("expected 1 attempt, got %d", callCount)
	}
}

func TestCreateOrder_CommitError(t *testing.T) {
	item := burger()
	svc, tx := newTestService(defaultStore(item))
	tx.commitErr = errors.New("connection reset")

	_, err := svc.CreateOrder(context.Background(), basicReq(item.ID.String()))
	if err == nil || !strings.Contains(err.Error(), "commit tx") {
		t.Fatalf("expected commit error, got %v", err)
	}
}
