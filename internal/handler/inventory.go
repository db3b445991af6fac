package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/service"
	"github.com/kitchenops/api/internal/stock"
	"github.com/kitchenops/api/internal/ws"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	ListInventoryItems(ctx context.Context, category pgtype.Text) ([]database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListStockMovements(ctx context.Context, arg database.ListStockMovementsParams) ([]database.StockMovement, error)
}

// StockChanger applies stock changes with their ledger rows.
// Satisfied by *service.StockService.
type StockChanger interface {
	Restock(ctx context.Context, c service.StockChange, quantity string) (*service.StockChangeResult, error)
	Adjust(ctx context.Context, c service.StockChange, change, reason string) (*service.StockChangeResult, error)
}

// InventoryHandler handles inventory endpoints.
type InventoryHandler struct {
	store  InventoryStore
	stock  StockChanger
	hub    Broadcaster
	logger *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore, changer StockChanger, hub Broadcaster, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{store: store, stock: changer, hub: hub, logger: logger}
}

// RegisterReadRoutes registers inventory read endpoints. Mounted under /inventory.
func (h *InventoryHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/alerts", h.Alerts)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/movements", h.Movements)
}

// RegisterWriteRoutes registers inventory write endpoints. Mounted under /inventory.
func (h *InventoryHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/deliveries", h.ImportDeliveryNote)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restock", h.Restock)
	r.Post("/{id}/adjust", h.Adjust)
}

// --- Request / Response types ---

type inventoryItemRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
	MaxStock     string `json:"max_stock"`
	CostPerUnit  string `json:"cost_per_unit"`
	Supplier     string `json:"supplier"`
}

type restockRequest struct {
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}

type adjustRequest struct {
	Change string `json:"change"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type inventoryItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Unit            string     `json:"unit"`
	CurrentStock    string     `json:"current_stock"`
	MinStock        string     `json:"min_stock"`
	MaxStock        string     `json:"max_stock"`
	CostPerUnit     string     `json:"cost_per_unit"`
	Supplier        *string    `json:"supplier"`
	LastRestockedAt *time.Time `json:"last_restocked_at"`
	Status          string     `json:"status"`
	Value           string     `json:"value"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type stockAlertResponse struct {
	inventoryItemResponse
	ReorderQuantity string `json:"reorder_quantity"`
}

type movementResponse struct {
	ID              uuid.UUID  `json:"id"`
	InventoryItemID uuid.UUID  `json:"inventory_item_id"`
	Change          string     `json:"change"`
	Reason          string     `json:"reason"`
	OrderID         *uuid.UUID `json:"order_id"`
	Note            *string    `json:"note"`
	CreatedBy       *uuid.UUID `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

type stockChangeResponse struct {
	Item     inventoryItemResponse `json:"item"`
	Movement movementResponse      `json:"movement"`
}

func levelOf(it database.InventoryItem) stock.Level {
	return stock.Level{
		Current:     database.ToDecimal(it.CurrentStock),
		Min:         database.ToDecimal(it.MinStock),
		Max:         database.ToDecimal(it.MaxStock),
		CostPerUnit: database.ToDecimal(it.CostPerUnit),
	}
}

func toInventoryItemResponse(it database.InventoryItem) inventoryItemResponse {
	level := levelOf(it)
	return inventoryItemResponse{
		ID:              it.ID,
		Name:            it.Name,
		Category:        it.Category,
		Unit:            it.Unit,
		CurrentStock:    quantity(it.CurrentStock),
		MinStock:        quantity(it.MinStock),
		MaxStock:        quantity(it.MaxStock),
		CostPerUnit:     money(it.CostPerUnit),
		Supplier:        optionalText(it.Supplier),
		LastRestockedAt: optionalTime(it.LastRestockedAt),
		Status:          stock.Status(level),
		Value:           stock.Value(level).StringFixed(database.MoneyPlaces),
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}

func toStockAlerts(items []database.InventoryItem) []stockAlertResponse {
	alerts := stock.Alerts(items, levelOf)
	out := make([]stockAlertResponse, len(alerts))
	for i, it := range alerts {
		out[i] = stockAlertResponse{
			inventoryItemResponse: toInventoryItemResponse(it),
			ReorderQuantity:       stock.ReorderQuantity(levelOf(it)).StringFixed(database.QuantityPlaces),
		}
	}
	return out
}

func toMovementResponse(m database.StockMovement) movementResponse {
	return movementResponse{
		ID:              m.ID,
		InventoryItemID: m.InventoryItemID,
		Change:          quantity(m.Change),
		Reason:          m.Reason,
		OrderID:         optionalUUID(m.OrderID),
		Note:            optionalText(m.Note),
		CreatedBy:       optionalUUID(m.CreatedBy),
		CreatedAt:       m.CreatedAt,
	}
}

// publishStockChanges announces new stock levels, plus a low stock event
// for every item that now needs attention.
func publishStockChanges(hub Broadcaster, logger *zap.Logger, items []database.InventoryItem) {
	for _, it := range items {
		resp := toInventoryItemResponse(it)
		publish(hub, logger, ws.InventoryAudience, enum.EventInventoryUpdated, resp)
		if stock.NeedsAttention(levelOf(it)) {
			publish(hub, logger, ws.InventoryAudience, enum.EventInventoryLowStock, stockAlertResponse{
				inventoryItemResponse: resp,
				ReorderQuantity:       stock.ReorderQuantity(levelOf(it)).StringFixed(database.QuantityPlaces),
			})
		}
	}
}

// --- Handlers ---

// List returns inventory items, optionally filtered by ?category= and by
// derived ?status=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", enum.StockInStock, enum.StockLow, enum.StockOut, enum.StockOverstocked:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := h.store.ListInventoryItems(r.Context(), database.Text(q.Get("category")))
	if err != nil {
		internalError(w, h.logger, "list inventory", err)
		return
	}

	resp := make([]inventoryItemResponse, 0, len(items))
	for _, it := range items {
		item := toInventoryItemResponse(it)
		if status != "" && item.Status != status {
			continue
		}
		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one inventory item.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	item, err := h.store.GetInventoryItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		internalError(w, h.logger, "get inventory item", err)
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Alerts returns the items at or below their minimum, most urgent first.
func (h *InventoryHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventoryItems(r.Context(), database.Text(""))
	if err != nil {
		internalError(w, h.logger, "list inventory", err)
		return
	}

	writeJSON(w, http.StatusOK, toStockAlerts(items))
}

// Movements returns an item's stock ledger, newest first.
func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	limit, offset := pagination(r)
	movements, err := h.store.ListStockMovements(r.Context(), database.ListStockMovementsParams{
		InventoryItemID: id,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		internalError(w, h.logger, "list stock movements", err)
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds an inventory item with its opening stock.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amounts, msg := validateInventoryItem(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	current, msg := parseAmount("current_stock", req.CurrentStock, database.QuantityPlaces)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		CurrentStock: database.ToNumeric(current, database.QuantityPlaces),
		MinStock:     database.ToNumeric(amounts.min, database.QuantityPlaces),
		MaxStock:     database.ToNumeric(amounts.max, database.QuantityPlaces),
		CostPerUnit:  database.ToNumeric(amounts.cost, database.MoneyPlaces),
		Supplier:     database.Text(req.Supplier),
	})
	if err != nil {
		if database.IsViolation(err, database.UniqueViolation, "inventory_items_name_key") {
			writeError(w, http.StatusConflict, "inventory item name already exists")
			return
		}
		internalError(w, h.logger, "create inventory item", err)
		return
	}

	publishStockChanges(h.hub, h.logger, []database.InventoryItem{item})
	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

// Update changes an item's descriptive fields and thresholds. Stock levels
// only move through restock and adjust.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	var req inventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amounts, msg := validateInventoryItem(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.UpdateInventoryItem(r.Context(), database.UpdateInventoryItemParams{
		ID:          id,
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		MinStock:    database.ToNumeric(amounts.min, database.QuantityPlaces),
		MaxStock:    database.ToNumeric(amounts.max, database.QuantityPlaces),
		CostPerUnit: database.ToNumeric(amounts.cost, database.MoneyPlaces),
		Supplier:    database.Text(req.Supplier),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		if database.IsViolation(err, database.UniqueViolation, "inventory_items_name_key") {
			writeError(w, http.StatusConflict, "inventory item name already exists")
			return
		}
		internalError(w, h.logger, "update inventory item", err)
		return
	}

	publishStockChanges(h.hub, h.logger, []database.InventoryItem{item})
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Delete removes an item that no recipe uses.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return
	}

	if _, err := h.store.DeleteInventoryItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		if database.IsViolation(err, database.ForeignKeyViolation, "") {
			writeError(w, http.StatusConflict, "inventory item is used in a recipe")
			return
		}
		internalError(w, h.logger, "delete inventory item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restock adds delivered stock.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	change, ok := h.stockChange(w, r)
	if !ok {
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	change.Note = req.Note

	result, err := h.stock.Restock(r.Context(), change, req.Quantity)
	h.respondStockChange(w, result, err)
}

// Adjust applies a signed correction or records waste.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	change, ok := h.stockChange(w, r)
	if !ok {
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	change.Note = req.Note

	result, err := h.stock.Adjust(r.Context(), change, req.Change, req.Reason)
	h.respondStockChange(w, result, err)
}

// --- Helpers ---

func (h *InventoryHandler) stockChange(w http.ResponseWriter, r *http.Request) (service.StockChange, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return service.StockChange{}, false
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid inventory item ID")
		return service.StockChange{}, false
	}
	return service.StockChange{ItemID: id, ActorID: claims.UserID}, true
}

func (h *InventoryHandler) respondStockChange(w http.ResponseWriter, result *service.StockChangeResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidChange),
			errors.Is(err, service.ErrInvalidReason),
			errors.Is(err, service.ErrWastePositive),
			errors.Is(err, service.ErrStockTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "inventory item not found")
		case errors.Is(err, service.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "stock cannot go below zero")
		default:
			internalError(w, h.logger, "change stock", err)
		}
		return
	}

	publishStockChanges(h.hub, h.logger, []database.InventoryItem{result.Item})
	writeJSON(w, http.StatusOK, stockChangeResponse{
		Item:     toInventoryItemResponse(result.Item),
		Movement: toMovementResponse(result.Movement),
	})
}

type thresholds struct {
	min, max, cost decimal.Decimal
}

func validateInventoryItem(req *inventoryItemRequest) (thresholds, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Unit == "" {
		return thresholds{}, "name and unit are required"
	}
	if req.Category == "" {
		req.Category = "general"
	}

	var t thresholds
	var msg string
	if t.min, msg = parseAmount("min_stock", req.MinStock, database.QuantityPlaces); msg != "" {
		return thresholds{}, msg
	}
	if t.max, msg = parseAmount("max_stock", req.MaxStock, database.QuantityPlaces); msg != "" {
		return thresholds{}, msg
	}
	if t.cost, msg = parseAmount("cost_per_unit", req.CostPerUnit, database.MoneyPlaces); msg != "" {
		return thresholds{}, msg
	}
	if t.max.IsPositive() && t.max.LessThan(t.min) {
		return thresholds{}, "max_stock must not be below min_stock"
	}
	return t, ""
}

// parseAmount reads an optional non-negative decimal that fits a column
// with the given scale; empty means zero.
func parseAmount(field, raw string, places int32) (decimal.Decimal, string) {
	if raw == "" {
		return decimal.Zero, ""
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, field + " must be a non-negative decimal"
	}
	if !database.Fits(d, places) {
		return decimal.Zero, field + " is too large"
	}
	return d, ""
}
