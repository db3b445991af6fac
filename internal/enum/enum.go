package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "pending"
	OrderStatusCooking        = "cooking"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusCooking,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

const (
	MovementRestock     = "restock"
	MovementConsumption = "consumption"
	MovementAdjustment  = "adjustment"
	MovementWaste       = "waste"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	RoleAdmin            = "admin"
	RoleKitchenStaff     = "kitchen_staff"
	RoleInventoryManager = "inventory_manager"
	RoleDeliveryStaff    = "delivery_staff"
)

// Roles lists every staff role.
var Roles = []string{
	RoleAdmin,
	RoleKitchenStaff,
	RoleInventoryManager,
	RoleDeliveryStaff,
}

// ── Group B: Derived labels (computed, never stored) ──

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	StockInStock     = "in_stock"
	StockLow         = "low_stock"
	StockOut         = "out_of_stock"
	StockOverstocked = "overstocked"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderAssigned      = "order.assigned"
	EventInventoryUpdated   = "inventory.updated"
	EventInventoryLowStock  = "inventory.low_stock"
)

// IsRole reports whether s is a known staff role.
func IsRole(s string) bool {
	for _, r := range Roles {
		if r == s {
			return true
		}
	}
	return false
}

// IsOrderStatus reports whether s is a known order status.
func IsOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an order in status s can no longer change.
func IsTerminal(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}
