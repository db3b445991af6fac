package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kitchenops/api/internal/database"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockStore implements every store interface of this package. Tests set
// only the functions the code under test should call.
type mockStore struct {
	getNextOrderNumberFn     func(ctx context.Context) (int32, error)
	getMenuItemFn            func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	createOrderFn            func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn        func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderFn               func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getUserByIDFn            func(ctx context.Context, id uuid.UUID) (database.User, error)
	listDeliveryCandidatesFn func(ctx context.Context) ([]database.ListDeliveryCandidatesRow, error)
	transitionOrderFn        func(ctx context.Context, arg database.TransitionOrderParams) (database.Order, error)
	reassignOrderFn          func(ctx context.Context, arg database.ReassignOrderParams) (database.Order, error)
	listOrderConsumptionFn   func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderConsumptionRow, error)
	adjustStockFn            func(ctx context.Context, arg database.AdjustStockParams) (database.InventoryItem, error)
	createStockMovementFn    func(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	deleteRecipeFn           func(ctx context.Context, menuItemID uuid.UUID) error
	addRecipeLineFn          func(ctx context.Context, arg database.AddRecipeLineParams) (database.MenuItemIngredient, error)
	listRecipeFn             func(ctx context.Context, menuItemID uuid.UUID) ([]database.ListRecipeRow, error)
}

func (m *mockStore) GetNextOrderNumber(ctx context.Context) (int32, error) {
	return m.getNextOrderNumberFn(ctx)
}
func (m *mockStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.getMenuItemFn(ctx, id)
}
func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}
func (m *mockStore) ListDeliveryCandidates(ctx context.Context) ([]database.ListDeliveryCandidatesRow, error) {
	return m.listDeliveryCandidatesFn(ctx)
}
func (m *mockStore) TransitionOrder(ctx context.Context, arg database.TransitionOrderParams) (database.Order, error) {
	return m.transitionOrderFn(ctx, arg)
}
func (m *mockStore) ReassignOrder(ctx context.Context, arg database.ReassignOrderParams) (database.Order, error) {
	return m.reassignOrderFn(ctx, arg)
}
func (m *mockStore) ListOrderConsumption(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderConsumptionRow, error) {
	return m.listOrderConsumptionFn(ctx, orderID)
}
func (m *mockStore) AdjustStock(ctx context.Context, arg database.AdjustStockParams) (database.InventoryItem, error) {
	return m.adjustStockFn(ctx, arg)
}
func (m *mockStore) CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
	return m.createStockMovementFn(ctx, arg)
}
func (m *mockStore) DeleteRecipe(ctx context.Context, menuItemID uuid.UUID) error {
	return m.deleteRecipeFn(ctx, menuItemID)
}
func (m *mockStore) AddRecipeLine(ctx context.Context, arg database.AddRecipeLineParams) (database.MenuItemIngredient, error) {
	return m.addRecipeLineFn(ctx, arg)
}
func (m *mockStore) ListRecipe(ctx context.Context, menuItemID uuid.UUID) ([]database.ListRecipeRow, error) {
	return m.listRecipeFn(ctx, menuItemID)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	exp, _ := decimal.NewFromString(expected)
	return database.ToDecimal(n).Equal(exp)
}

func newPool() (*mockTxBeginner, *mockTx) {
	tx := &mockTx{}
	return &mockTxBeginner{tx: tx}, tx
}
