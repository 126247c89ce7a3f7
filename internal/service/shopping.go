package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/types"
)

// ShoppingListRenderer turns aggregated lines into a document.
type ShoppingListRenderer interface {
	Render(lines []types.ShoppingLine) ([]byte, error)
}

// ShoppingListService aggregates a user's cart into a shopping list.
type ShoppingListService struct {
	db       *gorm.DB
	renderer ShoppingListRenderer
}

var _ IShoppingListService = (*ShoppingListService)(nil)

func NewShoppingListService(db *gorm.DB, renderer ShoppingListRenderer) *ShoppingListService {
	return &ShoppingListService{db: db, renderer: renderer}
}

// Lines sums ingredient amounts per (name, unit) across the recipes in
// viewer's own cart, ordered by name.
func (s *ShoppingListService) Lines(ctx context.Context, viewer Identity) ([]types.ShoppingLine, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	var lines []types.ShoppingLine
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", viewer.UserID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Order("ingredients.measurement_unit").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	if lines == nil {
		lines = []types.ShoppingLine{}
	}
	return lines, nil
}

// Render produces the downloadable shopping list. Rendering only reads the
// cart.
func (s *ShoppingListService) Render(ctx context.Context, viewer Identity) ([]byte, error) {
	lines, err := s.Lines(ctx, viewer)
	if err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to render shopping list: %w", err)
	}
	return doc, nil
}
