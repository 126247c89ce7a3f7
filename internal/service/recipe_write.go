package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/types"
)

const maxRecipeNameLength = 200

// validatedRecipe is a write request that passed every check and is ready
// to persist.
type validatedRecipe struct {
	tagIDs []uint
	lines  []model.RecipeIngredient
	image  *DecodedImage
}

// validate runs every check before any mutation. Tags and ingredients are
// mandatory on create and update alike; scalar fields are mandatory on
// create only.
func (s *RecipeService) validate(ctx context.Context, req *types.RecipeWriteRequest, creating bool) (*validatedRecipe, error) {
	if len(req.Tags) == 0 {
		return nil, ErrEmptyTags
	}
	seenTags := make(map[uint]bool, len(req.Tags))
	for _, id := range req.Tags {
		if seenTags[id] {
			return nil, fmt.Errorf("%w: tag %d", ErrDuplicateTags, id)
		}
		seenTags[id] = true
	}
	tags, err := s.catalog.tagsByID(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	for _, id := range req.Tags {
		if _, ok := tags[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTag, id)
		}
	}

	if len(req.Ingredients) == 0 {
		return nil, ErrEmptyIngredients
	}
	ids := make([]uint, len(req.Ingredients))
	for i, line := range req.Ingredients {
		ids[i] = line.ID
	}
	known, err := s.catalog.ingredientsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownIngredient, id)
		}
	}
	seenIngredients := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seenIngredients[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIngredients, known[id].Name)
		}
		seenIngredients[id] = true
	}
	lines := make([]model.RecipeIngredient, len(req.Ingredients))
	for i, line := range req.Ingredients {
		if !(line.Amount > 0) || math.IsInf(line.Amount, 0) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, known[line.ID].Name)
		}
		lines[i] = model.RecipeIngredient{IngredientID: line.ID, Amount: line.Amount}
	}

	if req.CookingTime != nil {
		if *req.CookingTime < 1 {
			return nil, ErrInvalidCookingTime
		}
	} else if creating {
		return nil, ErrInvalidCookingTime
	}

	v := &validatedRecipe{tagIDs: req.Tags, lines: lines}
	if req.Image != nil {
		if v.image, err = DecodeImage(*req.Image); err != nil {
			return nil, err
		}
	} else if creating {
		return nil, ErrInvalidImage
	}

	if err := checkText("name", req.Name, creating, maxRecipeNameLength); err != nil {
		return nil, err
	}
	if err := checkText("text", req.Text, creating, 0); err != nil {
		return nil, err
	}

	return v, nil
}

func checkText(field string, value *string, required bool, maxLen int) error {
	if value == nil {
		if required {
			return fmt.Errorf("%w: %s is required", ErrInvalidField, field)
		}
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidField, field)
	}
	if maxLen > 0 && utf8.RuneCountInString(*value) > maxLen {
		return fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidField, field, maxLen)
	}
	return nil
}

// CreateRecipe validates and persists a recipe authored by viewer. The
// recipe row, its lines and its tag links commit together or not at all.
func (s *RecipeService) CreateRecipe(ctx context.Context, viewer Identity, req *types.RecipeWriteRequest) (*types.RecipeView, error) {
	if err := RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	v, err := s.validate(ctx, req, true)
	if err != nil {
		return nil, err
	}

	key, err := s.images.Save(ctx, v.image)
	if err != nil {
		return nil, err
	}

	recipe := model.Recipe{
		AuthorID:    viewer.UserID,
		Name:        strings.TrimSpace(*req.Name),
		Text:        *req.Text,
		CookingTime: *req.CookingTime,
		Image:       key,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return replaceChildren(tx, recipe.ID, v)
	})
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}

	return s.GetRecipe(ctx, viewer, recipe.ID)
}

// UpdateRecipe replaces tags and lines wholesale and updates the scalar
// fields present in req.
func (s *RecipeService) UpdateRecipe(ctx context.Context, viewer Identity, id uint, req *types.RecipeWriteRequest) (*types.RecipeView, error) {
	recipe, err := s.loadRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanModifyRecipe(viewer, recipe); err != nil {
		return nil, err
	}
	v, err := s.validate(ctx, req, false)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Text != nil {
		updates["text"] = *req.Text
	}
	if req.CookingTime != nil {
		updates["cooking_time"] = *req.CookingTime
	}
	newKey := ""
	if v.image != nil {
		if newKey, err = s.images.Save(ctx, v.image); err != nil {
			return nil, err
		}
		updates["image"] = newKey
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&model.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update recipe: %w", err)
			}
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		return replaceChildren(tx, id, v)
	})
	if err != nil {
		s.discardImage(ctx, newKey)
		return nil, err
	}
	if newKey != "" {
		s.discardImage(ctx, recipe.Image)
	}

	return s.GetRecipe(ctx, viewer, id)
}

func replaceChildren(tx *gorm.DB, recipeID uint, v *validatedRecipe) error {
	links := make([]model.RecipeTag, len(v.tagIDs))
	for i, tagID := range v.tagIDs {
		links[i] = model.RecipeTag{RecipeID: recipeID, TagID: tagID}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link recipe tags: %w", err)
	}

	lines := make([]model.RecipeIngredient, len(v.lines))
	for i, line := range v.lines {
		lines[i] = model.RecipeIngredient{RecipeID: recipeID, IngredientID: line.IngredientID, Amount: line.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to create recipe ingredients: %w", err)
	}
	return nil
}

// DeleteRecipe removes the recipe together with its lines, tag links and
// every favorite and cart marker pointing at it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, viewer Identity, id uint) error {
	recipe, err := s.loadRecipe(ctx, id)
	if err != nil {
		return err
	}
	if err := CanModifyRecipe(viewer, recipe); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := s.favorites.DeleteByObject(tx, id); err != nil {
			return err
		}
		if err := s.carts.DeleteByObject(tx, id); err != nil {
			return err
		}
		return tx.Delete(&model.Recipe{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.discardImage(ctx, recipe.Image)
	return nil
}

// discardImage removes an image that no committed recipe references. A
// failure leaves an orphan behind, which is logged rather than returned.
func (s *RecipeService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to delete recipe image",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
