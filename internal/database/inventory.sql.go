package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryColumns = `id, name, category, unit, current_stock, min_stock, max_stock, cost_per_unit,
    supplier, last_restocked_at, created_at, updated_at`

func scanInventoryItem(row rowScanner) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.Unit,
		&i.CurrentStock,
		&i.MinStock,
		&i.MaxStock,
		&i.CostPerUnit,
		&i.Supplier,
		&i.LastRestockedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listInventoryItems = `SELECT ` + inventoryColumns + ` FROM inventory_items
WHERE ($1::text IS NULL OR category = $1::text)
ORDER BY category, name`

func (q *Queries) ListInventoryItems(ctx context.Context, category pgtype.Text) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getInventoryItem = `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1`

func (q *Queries) GetInventoryItem(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItem, id))
}

const createInventoryItem = `INSERT INTO inventory_items (
    name, category, unit, current_stock, min_stock, max_stock, cost_per_unit, supplier
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + inventoryColumns

type CreateInventoryItemParams struct {
	Name         string         `json:"name"`
	Category     string         `json:"category"`
	Unit         string         `json:"unit"`
	CurrentStock pgtype.Numeric `json:"current_stock"`
	MinStock     pgtype.Numeric `json:"min_stock"`
	MaxStock     pgtype.Numeric `json:"max_stock"`
	CostPerUnit  pgtype.Numeric `json:"cost_per_unit"`
	Supplier     pgtype.Text    `json:"supplier"`
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, createInventoryItem,
		arg.Name,
		arg.Category,
		arg.Unit,
		arg.CurrentStock,
		arg.MinStock,
		arg.MaxStock,
		arg.CostPerUnit,
		arg.Supplier,
	))
}

// Stock level is not updatable here; it changes only through AdjustStock so
// every change lands in the movement ledger.
const updateInventoryItem = `UPDATE inventory_items
SET name = $2, category = $3, unit = $4, min_stock = $5, max_stock = $6,
    cost_per_unit = $7, supplier = $8, updated_at = now()
WHERE id = $1
RETURNING ` + inventoryColumns

type UpdateInventoryItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Unit        string         `json:"unit"`
	MinStock    pgtype.Numeric `json:"min_stock"`
	MaxStock    pgtype.Numeric `json:"max_stock"`
	CostPerUnit pgtype.Numeric `json:"cost_per_unit"`
	Supplier    pgtype.Text    `json:"supplier"`
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, updateInventoryItem,
		arg.ID,
		arg.Name,
		arg.Category,
		arg.Unit,
		arg.MinStock,
		arg.MaxStock,
		arg.CostPerUnit,
		arg.Supplier,
	))
}

const deleteInventoryItem = `DELETE FROM inventory_items WHERE id = $1 RETURNING id`

func (q *Queries) DeleteInventoryItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteInventoryItem, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

const adjustStock = `UPDATE inventory_items
SET current_stock = current_stock + $2,
    last_restocked_at = CASE WHEN $3::boolean THEN now() ELSE last_restocked_at END,
    updated_at = now()
WHERE id = $1
RETURNING ` + inventoryColumns

type AdjustStockParams struct {
	ID        uuid.UUID      `json:"id"`
	Change    pgtype.Numeric `json:"change"`
	Restocked bool           `json:"restocked"`
}

// AdjustStock adds a signed change to current stock. Going below zero
// violates inventory_items_current_stock_check.
func (q *Queries) AdjustStock(ctx context.Context, arg AdjustStockParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, adjustStock, arg.ID, arg.Change, arg.Restocked))
}

const stockMovementColumns = `id, inventory_item_id, change, reason, order_id, note, created_by, created_at`

func scanStockMovement(row rowScanner) (StockMovement, error) {
	var i StockMovement
	err := row.Scan(
		&i.ID,
		&i.InventoryItemID,
		&i.Change,
		&i.Reason,
		&i.OrderID,
		&i.Note,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createStockMovement = `INSERT INTO stock_movements (inventory_item_id, change, reason, order_id, note, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + stockMovementColumns

type CreateStockMovementParams struct {
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Change          pgtype.Numeric `json:"change"`
	Reason          string         `json:"reason"`
	OrderID         pgtype.UUID    `json:"order_id"`
	Note            pgtype.Text    `json:"note"`
	CreatedBy       pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	return scanStockMovement(q.db.QueryRow(ctx, createStockMovement,
		arg.InventoryItemID,
		arg.Change,
		arg.Reason,
		arg.OrderID,
		arg.Note,
		arg.CreatedBy,
	))
}

const listStockMovements = `SELECT ` + stockMovementColumns + ` FROM stock_movements
WHERE inventory_item_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

type ListStockMovementsParams struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Limit           int32     `json:"limit"`
	Offset          int32     `json:"offset"`
}

func (q *Queries) ListStockMovements(ctx context.Context, arg ListStockMovementsParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovements, arg.InventoryItemID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockMovement{}
	for rows.Next() {
		i, err := scanStockMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
