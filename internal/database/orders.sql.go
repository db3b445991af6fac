package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_name, customer_phone, delivery_address, notes,
    status, subtotal, delivery_fee, total_amount, estimated_minutes,
    assigned_chef_id, assigned_delivery_id, cancel_reason, created_by,
    created_at, updated_at, cooking_started_at, dispatched_at, delivered_at, cancelled_at`

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.DeliveryAddress,
		&i.Notes,
		&i.Status,
		&i.Subtotal,
		&i.DeliveryFee,
		&i.TotalAmount,
		&i.EstimatedMinutes,
		&i.AssignedChefID,
		&i.AssignedDeliveryID,
		&i.CancelReason,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CookingStartedAt,
		&i.DispatchedAt,
		&i.DeliveredAt,
		&i.CancelledAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const getNextOrderNumber = `SELECT (COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1)::integer
FROM orders`

// GetNextOrderNumber returns MAX+1 of the numeric order suffix. Concurrent
// callers can get the same value; the unique constraint catches that.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const createOrder = `INSERT INTO orders (
    order_number, customer_name, customer_phone, delivery_address, notes,
    subtotal, delivery_fee, total_amount, estimated_minutes, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber      string         `json:"order_number"`
	CustomerName     string         `json:"customer_name"`
	CustomerPhone    pgtype.Text    `json:"customer_phone"`
	DeliveryAddress  pgtype.Text    `json:"delivery_address"`
	Notes            pgtype.Text    `json:"notes"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	DeliveryFee      pgtype.Numeric `json:"delivery_fee"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	EstimatedMinutes int32          `json:"estimated_minutes"`
	CreatedBy        uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.DeliveryAddress,
		arg.Notes,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.TotalAmount,
		arg.EstimatedMinutes,
		arg.CreatedBy,
	))
}

const orderItemColumns = `id, order_id, menu_item_id, name, quantity, unit_price, subtotal, notes, created_at`

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.Name,
		&i.Quantity,
		&i.UnitPrice,
		&i.Subtotal,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID pgtype.UUID    `json:"menu_item_id"`
	Name       string         `json:"name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	Subtotal   pgtype.Numeric `json:"subtotal"`
	Notes      pgtype.Text    `json:"notes"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Notes,
	))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1::text)
  AND ($2::uuid IS NULL OR assigned_chef_id = $2::uuid OR assigned_delivery_id = $2::uuid)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListOrdersParams struct {
	Status     pgtype.Text `json:"status"`
	AssignedTo pgtype.UUID `json:"assigned_to"`
	Limit      int32       `json:"limit"`
	Offset     int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.AssignedTo, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrdersByStatuses = `SELECT ` + orderColumns + ` FROM orders
WHERE status = ANY($1::text[])
  AND ($2::uuid IS NULL OR assigned_delivery_id = $2::uuid)
ORDER BY created_at`

type ListOrdersByStatusesParams struct {
	Statuses   []string    `json:"statuses"`
	DeliveryID pgtype.UUID `json:"delivery_id"`
}

// ListOrdersByStatuses returns every order in the given statuses, oldest
// first, optionally limited to one delivery partner.
func (q *Queries) ListOrdersByStatuses(ctx context.Context, arg ListOrdersByStatusesParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByStatuses, arg.Statuses, arg.DeliveryID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const listOrderItemsByOrders = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, created_at, id`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const transitionOrder = `UPDATE orders SET
    status = $3::text,
    assigned_chef_id = COALESCE($4::uuid, assigned_chef_id),
    assigned_delivery_id = COALESCE($5::uuid, assigned_delivery_id),
    cancel_reason = COALESCE($6::text, cancel_reason),
    cooking_started_at = CASE WHEN $3::text = 'cooking' THEN now() ELSE cooking_started_at END,
    dispatched_at = CASE WHEN $3::text = 'out_for_delivery' THEN now() ELSE dispatched_at END,
    delivered_at = CASE WHEN $3::text = 'delivered' THEN now() ELSE delivered_at END,
    cancelled_at = CASE WHEN $3::text = 'cancelled' THEN now() ELSE cancelled_at END,
    updated_at = now()
WHERE id = $1 AND status = $2::text
RETURNING ` + orderColumns

type TransitionOrderParams struct {
	ID           uuid.UUID   `json:"id"`
	FromStatus   string      `json:"from_status"`
	ToStatus     string      `json:"to_status"`
	ChefID       pgtype.UUID `json:"chef_id"`
	DeliveryID   pgtype.UUID `json:"delivery_id"`
	CancelReason pgtype.Text `json:"cancel_reason"`
}

// TransitionOrder moves an order to ToStatus only if it is still in
// FromStatus. pgx.ErrNoRows means the order is gone or moved concurrently.
func (q *Queries) TransitionOrder(ctx context.Context, arg TransitionOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, transitionOrder,
		arg.ID,
		arg.FromStatus,
		arg.ToStatus,
		arg.ChefID,
		arg.DeliveryID,
		arg.CancelReason,
	))
}

const reassignOrder = `UPDATE orders SET
    assigned_chef_id = COALESCE($2::uuid, assigned_chef_id),
    assigned_delivery_id = COALESCE($3::uuid, assigned_delivery_id),
    updated_at = now()
WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

type ReassignOrderParams struct {
	ID         uuid.UUID   `json:"id"`
	ChefID     pgtype.UUID `json:"chef_id"`
	DeliveryID pgtype.UUID `json:"delivery_id"`
}

func (q *Queries) ReassignOrder(ctx context.Context, arg ReassignOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, reassignOrder, arg.ID, arg.ChefID, arg.DeliveryID))
}

const listOrderConsumption = `SELECT r.inventory_item_id, i.name, SUM(r.quantity * oi.quantity)::numeric(12,3) AS required
FROM order_items oi
JOIN menu_item_ingredients r ON r.menu_item_id = oi.menu_item_id
JOIN inventory_items i ON i.id = r.inventory_item_id
WHERE oi.order_id = $1
GROUP BY r.inventory_item_id, i.name
ORDER BY r.inventory_item_id`

type ListOrderConsumptionRow struct {
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Name            string         `json:"name"`
	Required        pgtype.Numeric `json:"required"`
}

// ListOrderConsumption totals the ingredients an order needs, ordered by
// inventory item id so concurrent deductions lock rows in the same order.
func (q *Queries) ListOrderConsumption(ctx context.Context, orderID uuid.UUID) ([]ListOrderConsumptionRow, error) {
	rows, err := q.db.Query(ctx, listOrderConsumption, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrderConsumptionRow{}
	for rows.Next() {
		var i ListOrderConsumptionRow
		if err := rows.Scan(&i.InventoryItemID, &i.Name, &i.Required); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOrdersByStatus = `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`

type CountOrdersByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var i CountOrdersByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deliveredSince = `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)::numeric(14,2)
FROM orders
WHERE status = 'delivered' AND delivered_at >= $1
  AND ($2::uuid IS NULL OR assigned_delivery_id = $2::uuid)`

type DeliveredSinceParams struct {
	Since      time.Time   `json:"since"`
	DeliveryID pgtype.UUID `json:"delivery_id"`
}

type DeliveredSinceRow struct {
	Count   int64          `json:"count"`
	Revenue pgtype.Numeric `json:"revenue"`
}

// DeliveredSince counts delivered orders and their revenue since a moment,
// optionally for one delivery partner.
func (q *Queries) DeliveredSince(ctx context.Context, arg DeliveredSinceParams) (DeliveredSinceRow, error) {
	row := q.db.QueryRow(ctx, deliveredSince, arg.Since, arg.DeliveryID)
	var i DeliveredSinceRow
	err := row.Scan(&i.Count, &i.Revenue)
	return i, err
}
