package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageza/foodgram/backend/internal/types"
)

type marker interface {
	Add(ctx context.Context, subject, object uint) error
	Remove(ctx context.Context, subject, object uint) error
}

// AddFavorite marks a recipe as favorited by viewer.
func (s *RecipeService) AddFavorite(ctx context.Context, viewer Identity, recipeID uint) (*types.RecipeSummary, error) {
	return s.mark(ctx, viewer, recipeID, s.favorites)
}

// RemoveFavorite clears the favorite marker.
func (s *RecipeService) RemoveFavorite(ctx context.Context, viewer Identity, recipeID uint) error {
	return s.unmark(ctx, viewer, recipeID, s.favorites)
}

// AddToShoppingCart puts a recipe into viewer's shopping cart.
func (s *RecipeService) AddToShoppingCart(ctx context.Context, viewer Identity, recipeID uint) (*types.RecipeSummary, error) {
	return s.mark(ctx, viewer, recipeID, s.carts)
}

// RemoveFromShoppingCart takes a recipe out of viewer's shopping cart.
func (s *RecipeService) RemoveFromShoppingCart(ctx context.Context, viewer Identity, recipeID uint) error {
	return s.unmark(ctx, viewer, recipeID, s.carts)
}

func (s *RecipeService) mark(ctx context.Context, viewer Identity, recipeID uint, store marker) (*types.RecipeSummary, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	recipe, err := s.loadRecipe(ctx, recipeID)
	if err != nil {
		return nil, objectNotFound(err)
	}
	if err := store.Add(ctx, viewer.UserID, recipeID); err != nil {
		return nil, err
	}
	summary := s.summary(recipe)
	return &summary, nil
}

func (s *RecipeService) unmark(ctx context.Context, viewer Identity, recipeID uint, store marker) error {
	if err := RequireAuthenticated(viewer); err != nil {
		return err
	}
	if _, err := s.loadRecipe(ctx, recipeID); err != nil {
		return objectNotFound(err)
	}
	return store.Remove(ctx, viewer.UserID, recipeID)
}

// objectNotFound reports a missing toggle target as ErrObjectNotFound.
func objectNotFound(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindNotFound {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, e.Message)
	}
	return err
}
