package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/lifecycle"
	"github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/stock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardStore defines the database methods needed by dashboard handlers.
// Satisfied by *database.Queries; narrow interface for testability.
// Methods are called concurrently.
type DashboardStore interface {
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	DeliveredSince(ctx context.Context, arg database.DeliveredSinceParams) (database.DeliveredSinceRow, error)
	CountActiveStaffByRole(ctx context.Context) ([]database.CountActiveStaffByRoleRow, error)
	ListInventoryItems(ctx context.Context, category pgtype.Text) ([]database.InventoryItem, error)
	ListOrdersByStatuses(ctx context.Context, arg database.ListOrdersByStatusesParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
}

// DashboardHandler serves the per-role dashboard summaries.
type DashboardHandler struct {
	store  DashboardStore
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for "today" and order timing.
func (h *DashboardHandler) WithClock(now func() time.Time) *DashboardHandler {
	h.now = now
	return h
}

// RegisterRoutes registers the dashboard endpoints with their role guards.
// Mounted under /dashboard.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleAdmin)).Get("/admin", h.Admin)
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleKitchenStaff)).Get("/kitchen", h.Kitchen)
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleDeliveryStaff)).Get("/delivery", h.Delivery)
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleInventoryManager, enum.RoleKitchenStaff)).Get("/inventory", h.Inventory)
}

// --- Response types ---

type deliveredSummary struct {
	Count   int64  `json:"count"`
	Revenue string `json:"revenue"`
}

type inventorySummary struct {
	Items      int            `json:"items"`
	ByStatus   map[string]int `json:"by_status"`
	LowStock   int            `json:"low_stock"`
	OutOfStock int            `json:"out_of_stock"`
	TotalValue string         `json:"total_value"`
}

type adminDashboard struct {
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	ActiveOrders   int64            `json:"active_orders"`
	DeliveredToday deliveredSummary `json:"delivered_today"`
	StaffByRole    map[string]int64 `json:"staff_by_role"`
	Inventory      inventorySummary `json:"inventory"`
}

type kitchenDashboard struct {
	Pending  int             `json:"pending"`
	Cooking  int             `json:"cooking"`
	Overdue  int             `json:"overdue"`
	Queue    []orderResponse `json:"queue"`
	LowStock int             `json:"low_stock"`
}

type deliveryDashboard struct {
	Active         []orderResponse  `json:"active"`
	DeliveredToday deliveredSummary `json:"delivered_today"`
}

type inventoryDashboard struct {
	Summary inventorySummary        `json:"summary"`
	Items   []inventoryItemResponse `json:"items"`
	Alerts  []stockAlertResponse    `json:"alerts"`
}

func summarizeInventory(items []database.InventoryItem) inventorySummary {
	s := inventorySummary{
		Items:      len(items),
		ByStatus:   map[string]int{enum.StockInStock: 0, enum.StockLow: 0, enum.StockOut: 0, enum.StockOverstocked: 0},
		TotalValue: stock.TotalValue(items, levelOf).StringFixed(database.MoneyPlaces),
	}
	for _, it := range items {
		s.ByStatus[stock.Status(levelOf(it))]++
	}
	s.LowStock = s.ByStatus[enum.StockLow]
	s.OutOfStock = s.ByStatus[enum.StockOut]
	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// --- Handlers ---

// Admin returns the restaurant-wide overview.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	var (
		statusRows []database.CountOrdersByStatusRow
		delivered  database.DeliveredSinceRow
		staffRows  []database.CountActiveStaffByRoleRow
		items      []database.InventoryItem
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		statusRows, err = h.store.CountOrdersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		delivered, err = h.store.DeliveredSince(ctx, database.DeliveredSinceParams{Since: startOfDay(now)})
		return err
	})
	g.Go(func() (err error) {
		staffRows, err = h.store.CountActiveStaffByRole(ctx)
		return err
	})
	g.Go(func() (err error) {
		items, err = h.store.ListInventoryItems(ctx, pgtype.Text{})
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, h.logger, "admin dashboard", err)
		return
	}

	resp := adminDashboard{
		OrdersByStatus: make(map[string]int64, len(enum.OrderStatuses)),
		DeliveredToday: deliveredSummary{Count: delivered.Count, Revenue: money(delivered.Revenue)},
		StaffByRole:    make(map[string]int64, len(enum.Roles)),
		Inventory:      summarizeInventory(items),
	}
	for _, s := range enum.OrderStatuses {
		resp.OrdersByStatus[s] = 0
	}
	for _, row := range statusRows {
		resp.OrdersByStatus[row.Status] = row.Count
		if !enum.IsTerminal(row.Status) {
			resp.ActiveOrders += row.Count
		}
	}
	for _, role := range enum.Roles {
		resp.StaffByRole[role] = 0
	}
	for _, row := range staffRows {
		resp.StaffByRole[row.Role] = row.Count
	}

	writeJSON(w, http.StatusOK, resp)
}

// Kitchen returns the cooking queue, most urgent first.
func (h *DashboardHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	var (
		orders []database.Order
		items  []database.InventoryItem
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		orders, err = h.store.ListOrdersByStatuses(ctx, database.ListOrdersByStatusesParams{
			Statuses: []string{enum.OrderStatusPending, enum.OrderStatusCooking},
		})
		return err
	})
	g.Go(func() (err error) {
		items, err = h.store.ListInventoryItems(ctx, pgtype.Text{})
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, h.logger, "kitchen dashboard", err)
		return
	}

	lifecycle.SortQueue(orders, snapshotOf, now)

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, err := h.store.ListOrderItemsByOrders(r.Context(), ids)
	if err != nil {
		internalError(w, h.logger, "kitchen dashboard: order items", err)
		return
	}
	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}

	resp := kitchenDashboard{
		Queue:    make([]orderResponse, len(orders)),
		LowStock: len(stock.Alerts(items, levelOf)),
	}
	for i, o := range orders {
		resp.Queue[i] = toOrderResponse(o, now)
		resp.Queue[i].Items = toOrderItemResponses(byOrder[o.ID])
		switch o.Status {
		case enum.OrderStatusPending:
			resp.Pending++
		case enum.OrderStatusCooking:
			resp.Cooking++
		}
		if resp.Queue[i].Overdue {
			resp.Overdue++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Delivery returns the caller's active deliveries. Admins see every order
// on the road.
func (h *DashboardHandler) Delivery(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	now := h.now()
	var partner pgtype.UUID
	if claims.Role == enum.RoleDeliveryStaff {
		partner = database.UUID(claims.UserID)
	}

	var (
		orders    []database.Order
		delivered database.DeliveredSinceRow
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		orders, err = h.store.ListOrdersByStatuses(ctx, database.ListOrdersByStatusesParams{
			Statuses:   []string{enum.OrderStatusOutForDelivery},
			DeliveryID: partner,
		})
		return err
	})
	g.Go(func() (err error) {
		delivered, err = h.store.DeliveredSince(ctx, database.DeliveredSinceParams{
			Since:      startOfDay(now),
			DeliveryID: partner,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, h.logger, "delivery dashboard", err)
		return
	}

	resp := deliveryDashboard{
		Active:         make([]orderResponse, len(orders)),
		DeliveredToday: deliveredSummary{Count: delivered.Count, Revenue: money(delivered.Revenue)},
	}
	for i, o := range orders {
		resp.Active[i] = toOrderResponse(o, now)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Inventory returns every item with its status plus the alert list.
func (h *DashboardHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventoryItems(r.Context(), pgtype.Text{})
	if err != nil {
		internalError(w, h.logger, "inventory dashboard", err)
		return
	}

	resp := inventoryDashboard{
		Summary: summarizeInventory(items),
		Items:   make([]inventoryItemResponse, len(items)),
		Alerts:  toStockAlerts(items),
	}
	for i, it := range items {
		resp.Items[i] = toInventoryItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}
