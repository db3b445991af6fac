package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kitchenops/api/internal/config"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/handler"
	mw "github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/navigation"
	"github.com/kitchenops/api/internal/service"
	"github.com/kitchenops/api/internal/ws"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, logger *zap.Logger) (chi.Router, error) {
	menu, err := navigation.Default()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`)) //nolint:errcheck
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, logger)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	transitionService := service.NewTransitionService(pool, func(db database.DBTX) service.TransitionStore {
		return database.New(db)
	})
	stockService := service.NewStockService(pool, func(db database.DBTX) service.StockStore {
		return database.New(db)
	})
	recipeService := service.NewRecipeService(pool, func(db database.DBTX) service.RecipeStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)
		handler.NewNavigationHandler(menu).RegisterRoutes(r)

		// Staff
		userHandler := handler.NewUserHandler(queries, logger)
		r.With(mw.RequireRole(enum.RoleAdmin)).Route("/users", userHandler.RegisterRoutes)
		r.With(mw.RequireRole(enum.RoleAdmin, enum.RoleKitchenStaff)).Get("/staff/delivery", userHandler.DeliveryStaff)

		// Orders
		orderHandler := handler.NewOrderHandler(queries, orderService, transitionService, hub, logger)
		r.With(mw.RequireRole(enum.RoleAdmin, enum.RoleKitchenStaff, enum.RoleDeliveryStaff)).Route("/orders", orderHandler.RegisterRoutes)

		// Inventory
		inventoryHandler := handler.NewInventoryHandler(queries, stockService, hub, logger)
		r.Route("/inventory", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleInventoryManager, enum.RoleKitchenStaff))
				inventoryHandler.RegisterReadRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleInventoryManager))
				inventoryHandler.RegisterWriteRoutes(r)
			})
		})

		// Menu: every role reads, admins edit
		menuHandler := handler.NewMenuHandler(queries, recipeService, logger)
		r.Route("/menu", func(r chi.Router) {
			menuHandler.RegisterReadRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				menuHandler.RegisterWriteRoutes(r)
			})
		})

		// Dashboards
		dashboardHandler := handler.NewDashboardHandler(queries, logger)
		r.Route("/dashboard", dashboardHandler.RegisterRoutes)
	})

	logger.Info("router initialized")
	return r, nil
}
