package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitchenops/api/internal/database"
)

var (
	ErrRecipeMenuItem      = errors.New("menu item not found")
	ErrInvalidIngredientID = errors.New("invalid inventory_item_id")
	ErrIngredientNotFound  = errors.New("inventory item not found")
	ErrDuplicateIngredient = errors.New("ingredient listed twice")
	ErrInvalidRecipeAmount = errors.New("quantity per portion must be between 0.001 and 999999999.999")
)

// RecipeStore defines the DB methods needed to replace a recipe.
// Satisfied by *database.Queries.
type RecipeStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	DeleteRecipe(ctx context.Context, menuItemID uuid.UUID) error
	AddRecipeLine(ctx context.Context, arg database.AddRecipeLineParams) (database.MenuItemIngredient, error)
	ListRecipe(ctx context.Context, menuItemID uuid.UUID) ([]database.ListRecipeRow, error)
}

type NewRecipeStore func(db database.DBTX) RecipeStore

// RecipeLine is one ingredient and the amount one portion uses.
type RecipeLine struct {
	InventoryItemID string
	Quantity        string
}

type RecipeService struct {
	pool     TxBeginner
	newStore NewRecipeStore
}

func NewRecipeService(pool TxBeginner, newStore NewRecipeStore) *RecipeService {
	return &RecipeService{pool: pool, newStore: newStore}
}

// Replace swaps a menu item's whole recipe for lines. An empty list clears it.
func (s *RecipeService) Replace(ctx context.Context, menuItemID uuid.UUID, lines []RecipeLine) ([]database.ListRecipeRow, error) {
	params := make([]database.AddRecipeLineParams, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for i, l := range lines {
		id, err := uuid.Parse(l.InventoryItemID)
		if err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidIngredientID)
		}
		if seen[id] {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrDuplicateIngredient)
		}
		seen[id] = true
		q, err := parseQuantity(l.Quantity)
		if err != nil || !q.IsPositive() || !database.Fits(q, database.QuantityPlaces) {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidRecipeAmount)
		}
		params[i] = database.AddRecipeLineParams{
			MenuItemID:      menuItemID,
			InventoryItemID: id,
			Quantity:        database.ToNumeric(q, database.QuantityPlaces),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetMenuItem(ctx, menuItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeMenuItem
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	if err := store.DeleteRecipe(ctx, menuItemID); err != nil {
		return nil, fmt.Errorf("delete recipe: %w", err)
	}
	for i, p := range params {
		if _, err := store.AddRecipeLine(ctx, p); err != nil {
			if database.IsViolation(err, database.ForeignKeyViolation, "") {
				return nil, fmt.Errorf("line[%d]: %w", i, ErrIngredientNotFound)
			}
			return nil, fmt.Errorf("add recipe line: %w", err)
		}
	}

	recipe, err := store.ListRecipe(ctx, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("list recipe: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return recipe, nil
}
