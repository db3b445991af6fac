package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Phone          pgtype.Text `json:"phone"`
	Role           string      `json:"role"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type InventoryItem struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	Category        string             `json:"category"`
	Unit            string             `json:"unit"`
	CurrentStock    pgtype.Numeric     `json:"current_stock"`
	MinStock        pgtype.Numeric     `json:"min_stock"`
	MaxStock        pgtype.Numeric     `json:"max_stock"`
	CostPerUnit     pgtype.Numeric     `json:"cost_per_unit"`
	Supplier        pgtype.Text        `json:"supplier"`
	LastRestockedAt pgtype.Timestamptz `json:"last_restocked_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type MenuItem struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type MenuItemIngredient struct {
	MenuItemID      uuid.UUID      `json:"menu_item_id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Quantity        pgtype.Numeric `json:"quantity"`
}

type Order struct {
	ID                 uuid.UUID          `json:"id"`
	OrderNumber        string             `json:"order_number"`
	CustomerName       string             `json:"customer_name"`
	CustomerPhone      pgtype.Text        `json:"customer_phone"`
	DeliveryAddress    pgtype.Text        `json:"delivery_address"`
	Notes              pgtype.Text        `json:"notes"`
	Status             string             `json:"status"`
	Subtotal           pgtype.Numeric     `json:"subtotal"`
	DeliveryFee        pgtype.Numeric     `json:"delivery_fee"`
	TotalAmount        pgtype.Numeric     `json:"total_amount"`
	EstimatedMinutes   int32              `json:"estimated_minutes"`
	AssignedChefID     pgtype.UUID        `json:"assigned_chef_id"`
	AssignedDeliveryID pgtype.UUID        `json:"assigned_delivery_id"`
	CancelReason       pgtype.Text        `json:"cancel_reason"`
	CreatedBy          uuid.UUID          `json:"created_by"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	CookingStartedAt   pgtype.Timestamptz `json:"cooking_started_at"`
	DispatchedAt       pgtype.Timestamptz `json:"dispatched_at"`
	DeliveredAt        pgtype.Timestamptz `json:"delivered_at"`
	CancelledAt        pgtype.Timestamptz `json:"cancelled_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID pgtype.UUID    `json:"menu_item_id"`
	Name       string         `json:"name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	Subtotal   pgtype.Numeric `json:"subtotal"`
	Notes      pgtype.Text    `json:"notes"`
	CreatedAt  time.Time      `json:"created_at"`
}

type StockMovement struct {
	ID              uuid.UUID      `json:"id"`
	InventoryItemID uuid.UUID      `json:"inventory_item_id"`
	Change          pgtype.Numeric `json:"change"`
	Reason          string         `json:"reason"`
	OrderID         pgtype.UUID    `json:"order_id"`
	Note            pgtype.Text    `json:"note"`
	CreatedBy       pgtype.UUID    `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
}
