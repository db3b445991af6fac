package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, category, description, price, prep_minutes, is_available, created_at, updated_at`

func scanMenuItem(row rowScanner) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.Description,
		&i.Price,
		&i.PrepMinutes,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::boolean = false OR is_available = true)
ORDER BY category, name`

// ListMenuItems lists the menu; availableOnly hides dishes taken off sale.
func (q *Queries) ListMenuItems(ctx context.Context, availableOnly bool) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, availableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
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

const getMenuItem = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const createMenuItem = `INSERT INTO menu_items (name, category, description, price, prep_minutes, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Category,
		arg.Description,
		arg.Price,
		arg.PrepMinutes,
		arg.IsAvailable,
	))
}

const updateMenuItem = `UPDATE menu_items
SET name = $2, category = $3, description = $4, price = $5, prep_minutes = $6,
    is_available = $7, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Category,
		arg.Description,
		arg.Price,
		arg.PrepMinutes,
		arg.IsAvailable,
	))
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1 RETURNING id`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

const listRecipe = `SELECT r.menu_item_id, r.inventory_item_id, i.name, i.unit, r.quantity
FROM menu_item_ingredients r
JOIN inventory_items i ON i.id = r.inventory_item_id
WHERE r.menu_item_id = $1
ORDER BY i.name`

type ListRecipeRow struct {
	MenuItemID      uuid.UUID      `json:"menu_item_id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Name            string         `json:"name"`
	Unit            string         `json:"unit"`
	Quantity        pgtype.Numeric `json:"quantity"`
}

func (q *Queries) ListRecipe(ctx context.Context, menuItemID uuid.UUID) ([]ListRecipeRow, error) {
	rows, err := q.db.Query(ctx, listRecipe, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListRecipeRow{}
	for rows.Next() {
		var i ListRecipeRow
		if err := rows.Scan(&i.MenuItemID, &i.InventoryItemID, &i.Name, &i.Unit, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRecipe = `DELETE FROM menu_item_ingredients WHERE menu_item_id = $1`

func (q *Queries) DeleteRecipe(ctx context.Context, menuItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRecipe, menuItemID)
	return err
}

const addRecipeLine = `INSERT INTO menu_item_ingredients (menu_item_id, inventory_item_id, quantity)
VALUES ($1, $2, $3)
RETURNING menu_item_id, inventory_item_id, quantity`

type AddRecipeLineParams struct {
	MenuItemID      uuid.UUID      `json:"menu_item_id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Quantity        pgtype.Numeric `json:"quantity"`
}

func (q *Queries) AddRecipeLine(ctx context.Context, arg AddRecipeLineParams) (MenuItemIngredient, error) {
	row := q.db.QueryRow(ctx, addRecipeLine, arg.MenuItemID, arg.InventoryItemID, arg.Quantity)
	var i MenuItemIngredient
	err := row.Scan(&i.MenuItemID, &i.InventoryItemID, &i.Quantity)
	return i, err
}
