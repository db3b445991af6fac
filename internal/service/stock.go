package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound  = errors.New("inventory item not found")
	ErrInvalidChange = errors.New("change must be a non-zero number")
	ErrInvalidReason = errors.New("reason must be adjustment or waste")
	ErrWastePositive = errors.New("waste must reduce stock")
	ErrStockTooLarge = errors.New("quantity exceeds the largest storable stock")
)

// StockStore defines the DB methods needed to change stock levels.
// Satisfied by *database.Queries.
type StockStore interface {
	AdjustStock(ctx context.Context, arg database.AdjustStockParams) (database.InventoryItem, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

type NewStockStore func(db database.DBTX) StockStore

// StockChange is a validated request to move an item's stock.
type StockChange struct {
	ItemID  uuid.UUID
	ActorID uuid.UUID
	Note    string
}

// StockChangeResult is the item after the change and its ledger row.
type StockChangeResult struct {
	Item     database.InventoryItem
	Movement database.StockMovement
}

// StockService writes stock changes together with their movement rows.
type StockService struct {
	pool     TxBeginner
	newStore NewStockStore
}

func NewStockService(pool TxBeginner, newStore NewStockStore) *StockService {
	return &StockService{pool: pool, newStore: newStore}
}

// Restock adds a positive quantity and stamps last_restocked_at.
func (s *StockService) Restock(ctx context.Context, c StockChange, quantity string) (*StockChangeResult, error) {
	q, err := parseQuantity(quantity)
	if err != nil || !q.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if !database.Fits(q, database.QuantityPlaces) {
		return nil, ErrStockTooLarge
	}
	return s.apply(ctx, c, q, enum.MovementRestock)
}

// Adjust applies a signed correction. Waste may only take stock away.
func (s *StockService) Adjust(ctx context.Context, c StockChange, change, reason string) (*StockChangeResult, error) {
	if reason != enum.MovementAdjustment && reason != enum.MovementWaste {
		return nil, ErrInvalidReason
	}
	d, err := parseQuantity(change)
	if err != nil || d.IsZero() {
		return nil, ErrInvalidChange
	}
	if !database.Fits(d, database.QuantityPlaces) {
		return nil, ErrStockTooLarge
	}
	if reason == enum.MovementWaste && d.IsPositive() {
		return nil, ErrWastePositive
	}
	return s.apply(ctx, c, d, reason)
}

func (s *StockService) apply(ctx context.Context, c StockChange, change decimal.Decimal, reason string) (*StockChangeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	n := database.ToNumeric(change, database.QuantityPlaces)

	item, err := store.AdjustStock(ctx, database.AdjustStockParams{
		ID:        c.ItemID,
		Change:    n,
		Restocked: reason == enum.MovementRestock,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		if database.IsViolation(err, database.CheckViolation, "inventory_items_current_stock_check") {
			return nil, ErrInsufficientStock
		}
		if database.IsViolation(err, database.NumericOutOfRange, "") {
			return nil, ErrStockTooLarge
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	movement, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		InventoryItemID: item.ID,
		Change:          n,
		Reason:          reason,
		Note:            database.Text(c.Note),
		CreatedBy:       database.UUID(c.ActorID),
	})
	if err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &StockChangeResult{Item: item, Movement: movement}, nil
}

// parseQuantity reads a decimal rounded to the stored precision, so checks on
// the result see exactly what the column will hold.
func parseQuantity(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(database.QuantityPlaces), nil
}
