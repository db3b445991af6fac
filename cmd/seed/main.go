package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kitchenops/api/internal/auth"
	"github.com/kitchenops/api/internal/config"
	"github.com/kitchenops/api/internal/enum"
	"github.com/kitchenops/api/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	withDemo      bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the first admin and, optionally, demo staff, stock and menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger, err := logging.New(cfg.LogLevel, "console")
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if adminPassword == "" {
			adminPassword = "password123"
			logger.Warn("using default password 'password123'; change it immediately in production")
		}
		return run(cmd.Context(), cfg.DatabaseURL, logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&adminEmail, "email", envOr("SEED_EMAIL", "admin@kitchenops.local"), "Admin email address")
	rootCmd.Flags().StringVar(&adminPassword, "password", os.Getenv("SEED_PASSWORD"), "Admin password")
	rootCmd.Flags().StringVar(&adminName, "name", envOr("SEED_NAME", "Kitchen Admin"), "Admin full name")
	rootCmd.Flags().BoolVar(&withDemo, "demo", false, "Also create demo staff, inventory, menu and recipes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, dbURL string, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	// Everything or nothing.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	s := &seeder{tx: tx, logger: logger}
	if _, err := s.user(ctx, adminEmail, adminPassword, adminName, enum.RoleAdmin); err != nil {
		return err
	}
	if withDemo {
		if err := s.demo(ctx, adminPassword); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Info("seed completed")
	return nil
}

type seeder struct {
	tx     pgx.Tx
	logger *zap.Logger
}

// user creates a staff account unless the email is already taken.
func (s *seeder) user(ctx context.Context, email, password, fullName, role string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err == nil {
		s.logger.Info("user exists, skipping", zap.String("email", email), zap.Stringer("id", id))
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user %s: %w", email, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}
	err = s.tx.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, email, hashed, fullName, role).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user %s: %w", email, err)
	}

	s.logger.Info("created user", zap.String("email", email), zap.String("role", role), zap.Stringer("id", id))
	return id, nil
}

type demoStock struct {
	name, category, unit string
	current, min, max    string
	cost, supplier       string
}

type demoDish struct {
	name, category, price string
	prepMinutes           int
	recipe                map[string]string
}

var (
	demoStaff = []struct{ email, name, role string }{
		{"chef@kitchenops.local", "Head Chef", enum.RoleKitchenStaff},
		{"stock@kitchenops.local", "Stock Keeper", enum.RoleInventoryManager},
		{"rider1@kitchenops.local", "Rider One", enum.RoleDeliveryStaff},
		{"rider2@kitchenops.local", "Rider Two", enum.RoleDeliveryStaff},
	}

	demoInventory = []demoStock{
		{"Rice", "dry goods", "kg", "40", "10", "80", "1.20", "Grain Co"},
		{"Chicken Thigh", "meat", "kg", "12", "5", "30", "6.50", "Farm Fresh"},
		{"Onion", "produce", "kg", "8", "3", "20", "0.90", "Farm Fresh"},
		{"Chili", "produce", "kg", "1.5", "2", "6", "4.00", "Farm Fresh"},
		{"Coconut Milk", "dry goods", "l", "10", "4", "24", "2.10", "Grain Co"},
		{"Egg", "dairy", "pcs", "60", "24", "180", "0.25", "Farm Fresh"},
	}

	demoMenu = []demoDish{
		{"Grilled Chicken Rice", "main", "11.50", 20, map[string]string{"Rice": "0.200", "Chicken Thigh": "0.180", "Chili": "0.010"}},
		{"Chicken Curry", "main", "12.00", 25, map[string]string{"Chicken Thigh": "0.200", "Coconut Milk": "0.150", "Onion": "0.050"}},
		{"Egg Fried Rice", "main", "8.00", 12, map[string]string{"Rice": "0.220", "Egg": "2", "Onion": "0.030"}},
		{"Sambal Side", "side", "1.50", 5, map[string]string{"Chili": "0.030", "Onion": "0.020"}},
	}
)

func (s *seeder) demo(ctx context.Context, password string) error {
	for _, st := range demoStaff {
		if _, err := s.user(ctx, st.email, password, st.name, st.role); err != nil {
			return err
		}
	}

	stockIDs := make(map[string]uuid.UUID, len(demoInventory))
	for _, it := range demoInventory {
		id, err := s.inventoryItem(ctx, it)
		if err != nil {
			return err
		}
		stockIDs[it.name] = id
	}

	for _, d := range demoMenu {
		menuID, created, err := s.menuItem(ctx, d)
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		for ingredient, qty := range d.recipe {
			_, err := s.tx.Exec(ctx, `
				INSERT INTO menu_item_ingredients (menu_item_id, inventory_item_id, quantity)
				VALUES ($1, $2, $3)`, menuID, stockIDs[ingredient], qty)
			if err != nil {
				return fmt.Errorf("insert recipe line %s/%s: %w", d.name, ingredient, err)
			}
		}
	}
	return nil
}

func (s *seeder) inventoryItem(ctx context.Context, it demoStock) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.tx.QueryRow(ctx, `SELECT id FROM inventory_items WHERE name = $1`, it.name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check inventory item %s: %w", it.name, err)
	}

	err = s.tx.QueryRow(ctx, `
		INSERT INTO inventory_items (name, category, unit, current_stock, min_stock, max_stock, cost_per_unit, supplier, last_restocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id`,
		it.name, it.category, it.unit, it.current, it.min, it.max, it.cost, it.supplier).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert inventory item %s: %w", it.name, err)
	}
	s.logger.Info("created inventory item", zap.String("name", it.name))
	return id, nil
}

// menuItem reports whether the dish was new so existing recipes are left alone.
func (s *seeder) menuItem(ctx context.Context, d demoDish) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.tx.QueryRow(ctx, `SELECT id FROM menu_items WHERE name = $1`, d.name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("check menu item %s: %w", d.name, err)
	}

	err = s.tx.QueryRow(ctx, `
		INSERT INTO menu_items (name, category, price, prep_minutes)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, d.name, d.category, d.price, d.prepMinutes).Scan(&id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert menu item %s: %w", d.name, err)
	}
	s.logger.Info("created menu item", zap.String("name", d.name))
	return id, true, nil
}
