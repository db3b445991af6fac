package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/handler"
	"github.com/kitchenops/api/internal/service"
	"go.uber.org/zap/zaptest"
)

// --- Mocks ---

type mockMenuStore struct {
	items   map[uuid.UUID]database.MenuItem
	recipes map[uuid.UUID][]database.ListRecipeRow
}

func newMockMenuStore() *mockMenuStore {
	return &mockMenuStore{
		items:   make(map[uuid.UUID]database.MenuItem),
		recipes: make(map[uuid.UUID][]database.ListRecipeRow),
	}
}

func (m *mockMenuStore) add(name string, available bool) database.MenuItem {
	it := database.MenuItem{ID: uuid.New(), Name: name, Category: "main", Price: makeNumeric("9.5"), PrepMinutes: 10, IsAvailable: available}
	m.items[it.ID] = it
	return it
}

func (m *mockMenuStore) ListMenuItems(_ context.Context, availableOnly bool) ([]database.MenuItem, error) {
	var out []database.MenuItem
	for _, it := range m.items {
		if availableOnly && !it.IsAvailable {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *mockMenuStore) GetMenuItem(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	it, ok := m.items[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (m *mockMenuStore) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	for _, it := range m.items {
		if it.Name == arg.Name {
			return database.MenuItem{}, &pgconn.PgError{Code: "23505", ConstraintName: "menu_items_name_key"}
		}
	}
	it := database.MenuItem{
		ID:          uuid.New(),
		Name:        arg.Name,
		Category:    arg.Category,
		Description: arg.Description,
		Price:       arg.Price,
		PrepMinutes: arg.PrepMinutes,
		IsAvailable: arg.IsAvailable,
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuStore) UpdateMenuItem(_ context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	it, ok := m.items[arg.ID]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	it.Name, it.Category, it.Description, it.Price = arg.Name, arg.Category, arg.Description, arg.Price
	it.PrepMinutes, it.IsAvailable = arg.PrepMinutes, arg.IsAvailable
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuStore) DeleteMenuItem(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.items[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.items, id)
	return id, nil
}

func (m *mockMenuStore) ListRecipe(_ context.Context, menuItemID uuid.UUID) ([]database.ListRecipeRow, error) {
	return m.recipes[menuItemID], nil
}

type mockRecipes struct {
	lines []service.RecipeLine
	err   error
}

func (m *mockRecipes) Replace(_ context.Context, menuItemID uuid.UUID, lines []service.RecipeLine) ([]database.ListRecipeRow, error) {
	m.lines = lines
	if m.err != nil {
		return nil, m.err
	}
	rows := make([]database.ListRecipeRow, len(lines))
	for i, l := range lines {
		rows[i] = database.ListRecipeRow{
			MenuItemID:      menuItemID,
			InventoryItemID: uuid.MustParse(l.InventoryItemID),
			Name:            fmt.Sprintf("ingredient %d", i),
			Unit:            "kg",
			Quantity:        makeNumeric(l.Quantity),
		}
	}
	return rows, nil
}

func setupMenuRouter(t *testing.T, store *mockMenuStore, recipes *mockRecipes) *chi.Mux {
	h := handler.NewMenuHandler(store, recipes, zaptest.NewLogger(t))
	return authRouter(func(r chi.Router) {
		r.Route("/menu", func(r chi.Router) {
			h.RegisterReadRoutes(r)
			h.RegisterWriteRoutes(r)
		})
	})
}

// --- Tests ---

func TestMenuList_AvailableOnly(t *testing.T) {
	store := newMockMenuStore()
	store.add("Soup", true)
	store.add("Seasonal Pie", false)
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodGet, "/menu?available=true", nil, staffClaims(enum.RoleDeliveryStaff))
	assertStatus(t, rr, http.StatusOK)

	items := decodeList(t, rr)
	if len(items) != 1 || items[0]["name"] != "Soup" || items[0]["price"] != "9.50" {
		t.Errorf("items: got %v", items)
	}
}

func TestMenuGet_IncludesRecipe(t *testing.T) {
	store := newMockMenuStore()
	it := store.add("Soup", true)
	store.recipes[it.ID] = []database.ListRecipeRow{
		{MenuItemID: it.ID, InventoryItemID: uuid.New(), Name: "Onion", Unit: "kg", Quantity: makeNumeric("0.2")},
	}
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodGet, "/menu/"+it.ID.String(), nil, staffClaims(enum.RoleKitchenStaff))
	assertStatus(t, rr, http.StatusOK)

	recipe := decodeResponse(t, rr)["recipe"].([]interface{})
	line := recipe[0].(map[string]interface{})
	if line["name"] != "Onion" || line["quantity"] != "0.200" {
		t.Errorf("recipe line: got %v", line)
	}
}

func TestMenuGet_NotFound(t *testing.T) {
	r := setupMenuRouter(t, newMockMenuStore(), &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodGet, "/menu/"+uuid.NewString(), nil, adminClaims)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestMenuCreate(t *testing.T) {
	store := newMockMenuStore()
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodPost, "/menu", map[string]interface{}{
		"name":         "Risotto",
		"price":        "14.999",
		"prep_minutes": 25,
	}, adminClaims)
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["price"] != "15.00" || resp["category"] != "main" || resp["is_available"] != true {
		t.Errorf("response: got %v", resp)
	}
}

func TestMenuCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"price": "1", "prep_minutes": 5}},
		{"negative price", map[string]interface{}{"name": "X", "price": "-1", "prep_minutes": 5}},
		{"bad price", map[string]interface{}{"name": "X", "price": "cheap", "prep_minutes": 5}},
		{"price too large", map[string]interface{}{"name": "X", "price": "1e10", "prep_minutes": 5}},
		{"zero prep", map[string]interface{}{"name": "X", "price": "1", "prep_minutes": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupMenuRouter(t, newMockMenuStore(), &mockRecipes{})
			rr := doAuthRequest(t, r, http.MethodPost, "/menu", tt.body, adminClaims)
			assertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestMenuCreate_DuplicateName(t *testing.T) {
	store := newMockMenuStore()
	store.add("Soup", true)
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodPost, "/menu", map[string]interface{}{
		"name": "Soup", "price": "5", "prep_minutes": 5,
	}, adminClaims)
	assertStatus(t, rr, http.StatusConflict)
}

func TestMenuUpdate_MarkUnavailable(t *testing.T) {
	store := newMockMenuStore()
	it := store.add("Soup", true)
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodPut, "/menu/"+it.ID.String(), map[string]interface{}{
		"name": "Soup", "price": "6", "prep_minutes": 8, "is_available": false,
	}, adminClaims)
	assertStatus(t, rr, http.StatusOK)

	if store.items[it.ID].IsAvailable {
		t.Error("item should be unavailable")
	}
}

func TestMenuDelete(t *testing.T) {
	store := newMockMenuStore()
	it := store.add("Soup", true)
	r := setupMenuRouter(t, store, &mockRecipes{})

	rr := doAuthRequest(t, r, http.MethodDelete, "/menu/"+it.ID.String(), nil, adminClaims)
	assertStatus(t, rr, http.StatusNoContent)

	rr = doAuthRequest(t, r, http.MethodDelete, "/menu/"+it.ID.String(), nil, adminClaims)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestReplaceRecipe(t *testing.T) {
	recipes := &mockRecipes{}
	r := setupMenuRouter(t, newMockMenuStore(), recipes)

	ingredient := uuid.New()
	rr := doAuthRequest(t, r, http.MethodPut, "/menu/"+uuid.NewString()+"/recipe", map[string]interface{}{
		"ingredients": []map[string]string{{"inventory_item_id": ingredient.String(), "quantity": "0.25"}},
	}, adminClaims)
	assertStatus(t, rr, http.StatusOK)

	if len(recipes.lines) != 1 || recipes.lines[0].InventoryItemID != ingredient.String() || recipes.lines[0].Quantity != "0.25" {
		t.Errorf("lines passed to service: got %+v", recipes.lines)
	}
	lines := decodeList(t, rr)
	if lines[0]["quantity"] != "0.250" {
		t.Errorf("quantity: got %v", lines[0]["quantity"])
	}
}

func TestReplaceRecipe_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrRecipeMenuItem, http.StatusNotFound},
		{service.ErrIngredientNotFound, http.StatusBadRequest},
		{service.ErrDuplicateIngredient, http.StatusBadRequest},
		{fmt.Errorf("line 1: %w", service.ErrInvalidRecipeAmount), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := setupMenuRouter(t, newMockMenuStore(), &mockRecipes{err: tt.err})
			rr := doAuthRequest(t, r, http.MethodPut, "/menu/"+uuid.NewString()+"/recipe", map[string]interface{}{
				"ingredients": []map[string]string{},
			}, adminClaims)
			assertStatus(t, rr, tt.want)
		})
	}
}
