package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/navigation"
)

// NavigationHandler serves the dashboard menu for the caller's role.
type NavigationHandler struct {
	menu *navigation.Menu
}

// NewNavigationHandler creates a new NavigationHandler.
func NewNavigationHandler(menu *navigation.Menu) *NavigationHandler {
	return &NavigationHandler{menu: menu}
}

// RegisterRoutes registers the navigation endpoint.
func (h *NavigationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/navigation", h.Get)
}

// Get returns the menu entries for the authenticated role.
func (h *NavigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":    claims.Role,
		"entries": h.menu.ForRole(claims.Role),
	})
}
