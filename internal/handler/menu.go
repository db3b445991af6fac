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
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, availableOnly bool) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListRecipe(ctx context.Context, menuItemID uuid.UUID) ([]database.ListRecipeRow, error)
}

// RecipeReplacer replaces the ingredient list of a menu item.
// Satisfied by *service.RecipeService.
type RecipeReplacer interface {
	Replace(ctx context.Context, menuItemID uuid.UUID, lines []service.RecipeLine) ([]database.ListRecipeRow, error)
}

// MenuHandler handles menu and recipe endpoints.
type MenuHandler struct {
	store   MenuStore
	recipes RecipeReplacer
	logger  *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, recipes RecipeReplacer, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, recipes: recipes, logger: logger}
}

// RegisterReadRoutes registers menu endpoints open to every role.
func (h *MenuHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterWriteRoutes registers admin-only menu endpoints.
func (h *MenuHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/recipe", h.ReplaceRecipe)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	PrepMinutes int32  `json:"prep_minutes"`
	IsAvailable *bool  `json:"is_available"`
}

type recipeRequest struct {
	Ingredients []recipeLineRequest `json:"ingredients"`
}

type recipeLineRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
	Quantity        string `json:"quantity"`
}

type menuItemResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Description *string          `json:"description"`
	Price       string           `json:"price"`
	PrepMinutes int32            `json:"prep_minutes"`
	IsAvailable bool             `json:"is_available"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Recipe      []recipeLineJSON `json:"recipe,omitempty"`
}

type recipeLineJSON struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	Quantity        string    `json:"quantity"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Category:    m.Category,
		Description: optionalText(m.Description),
		Price:       money(m.Price),
		PrepMinutes: m.PrepMinutes,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toRecipeJSON(rows []database.ListRecipeRow) []recipeLineJSON {
	out := make([]recipeLineJSON, len(rows))
	for i, row := range rows {
		out[i] = recipeLineJSON{
			InventoryItemID: row.InventoryItemID,
			Name:            row.Name,
			Unit:            row.Unit,
			Quantity:        quantity(row.Quantity),
		}
	}
	return out
}

// --- Handlers ---

// List returns menu items. ?available=true hides unavailable ones.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	availableOnly := r.URL.Query().Get("available") == "true"

	items, err := h.store.ListMenuItems(r.Context(), availableOnly)
	if err != nil {
		internalError(w, h.logger, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one menu item with its recipe.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, h.logger, "get menu item", err)
		return
	}

	recipe, err := h.store.ListRecipe(r.Context(), id)
	if err != nil {
		internalError(w, h.logger, "list recipe", err)
		return
	}

	resp := toMenuItemResponse(item)
	resp.Recipe = toRecipeJSON(recipe)
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := validateMenuItem(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        req.Name,
		Category:    req.Category,
		Description: database.Text(req.Description),
		Price:       database.ToNumeric(price, database.MoneyPlaces),
		PrepMinutes: req.PrepMinutes,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		if database.IsViolation(err, database.UniqueViolation, "menu_items_name_key") {
			writeError(w, http.StatusConflict, "menu item name already exists")
			return
		}
		internalError(w, h.logger, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update replaces a menu item's fields.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := validateMenuItem(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          id,
		Name:        req.Name,
		Category:    req.Category,
		Description: database.Text(req.Description),
		Price:       database.ToNumeric(price, database.MoneyPlaces),
		PrepMinutes: req.PrepMinutes,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		if database.IsViolation(err, database.UniqueViolation, "menu_items_name_key") {
			writeError(w, http.StatusConflict, "menu item name already exists")
			return
		}
		internalError(w, h.logger, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item. Past orders keep their snapshot of it.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, h.logger, "delete menu item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceRecipe sets the full ingredient list of a menu item.
func (h *MenuHandler) ReplaceRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]service.RecipeLine, len(req.Ingredients))
	for i, l := range req.Ingredients {
		lines[i] = service.RecipeLine{InventoryItemID: l.InventoryItemID, Quantity: l.Quantity}
	}

	recipe, err := h.recipes.Replace(r.Context(), id, lines)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecipeMenuItem):
			writeError(w, http.StatusNotFound, "menu item not found")
		case errors.Is(err, service.ErrInvalidIngredientID),
			errors.Is(err, service.ErrIngredientNotFound),
			errors.Is(err, service.ErrDuplicateIngredient),
			errors.Is(err, service.ErrInvalidRecipeAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, h.logger, "replace recipe", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toRecipeJSON(recipe))
}

// --- Helpers ---

func validateMenuItem(req *menuItemRequest) (decimal.Decimal, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return decimal.Zero, "name is required"
	}
	if req.Category == "" {
		req.Category = "main"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return decimal.Zero, "price must be a non-negative decimal"
	}
	if !database.Fits(price, database.MoneyPlaces) {
		return decimal.Zero, "price is too large"
	}
	if req.PrepMinutes <= 0 {
		return decimal.Zero, "prep_minutes must be positive"
	}
	return price, ""
}
