package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeService owns the recipe aggregate: the read composer, the write
// composer and the favorite and shopping cart toggles.
type RecipeService struct {
	db        *gorm.DB
	catalog   *CatalogService
	images    ImageStore
	favorites *RelationStore[model.Favorite]
	carts     *RelationStore[model.ShoppingCart]
	follows   *RelationStore[model.Follow]
	logger    *zap.Logger
}

var _ IRecipeService = (*RecipeService)(nil)

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, catalog *CatalogService, images ImageStore, logger *zap.Logger) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		db:        db,
		catalog:   catalog,
		images:    images,
		favorites: NewFavoriteStore(db),
		carts:     NewShoppingCartStore(db),
		follows:   NewFollowStore(db),
		logger:    logger,
	}
}

func preloadAggregate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

// filtered builds the recipe query for viewer. The second result is false
// when the filter can match nothing, so no query needs to run.
func (s *RecipeService) filtered(ctx context.Context, viewer Identity, filter types.RecipeFilter) (*gorm.DB, bool) {
	q := s.db.WithContext(ctx).Model(&model.Recipe{})

	if filter.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *filter.AuthorID)
	}

	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}

	if filter.IsFavorited != nil || filter.IsInShoppingCart != nil {
		if !viewer.Authenticated {
			return nil, false
		}
	}
	if filter.IsFavorited != nil {
		q = markedFilter(q, *filter.IsFavorited, s.favorites.ObjectsOf(viewer.UserID))
	}
	if filter.IsInShoppingCart != nil {
		q = markedFilter(q, *filter.IsInShoppingCart, s.carts.ObjectsOf(viewer.UserID))
	}

	return q, true
}

func markedFilter(q *gorm.DB, marked bool, objects *gorm.DB) *gorm.DB {
	if marked {
		return q.Where("recipes.id IN (?)", objects)
	}
	return q.Where("recipes.id NOT IN (?)", objects)
}

// ListRecipes returns one page of resolved recipes, newest first, together
// with the total number of matches.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer Identity, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeView, int64, error) {
	countQuery, ok := s.filtered(ctx, viewer, filter)
	if !ok {
		return []types.RecipeView{}, 0, nil
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	if total == 0 {
		return []types.RecipeView{}, 0, nil
	}

	listQuery, _ := s.filtered(ctx, viewer, filter)
	var recipes []model.Recipe
	err := preloadAggregate(listQuery).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	views, err := s.compose(ctx, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetRecipe returns a single resolved recipe.
func (s *RecipeService) GetRecipe(ctx context.Context, viewer Identity, id uint) (*types.RecipeView, error) {
	recipe, err := s.loadAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.compose(ctx, viewer, []model.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *RecipeService) loadAggregate(ctx context.Context, id uint) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := preloadAggregate(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func (s *RecipeService) loadRecipe(ctx context.Context, id uint) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// compose resolves viewer flags with one query per relation kind. An
// anonymous viewer gets false everywhere and issues no relation queries.
func (s *RecipeService) compose(ctx context.Context, viewer Identity, recipes []model.Recipe) ([]types.RecipeView, error) {
	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	following := map[uint]bool{}

	if viewer.Authenticated && len(recipes) > 0 {
		recipeIDs := make([]uint, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		seen := make(map[uint]bool, len(recipes))
		for i, r := range recipes {
			recipeIDs[i] = r.ID
			if !seen[r.AuthorID] {
				seen[r.AuthorID] = true
				authorIDs = append(authorIDs, r.AuthorID)
			}
		}

		var err error
		if favorited, err = s.favorites.Marked(ctx, viewer.UserID, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = s.carts.Marked(ctx, viewer.UserID, recipeIDs); err != nil {
			return nil, err
		}
		if following, err = s.follows.Marked(ctx, viewer.UserID, authorIDs); err != nil {
			return nil, err
		}
	}

	views := make([]types.RecipeView, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		views[i] = types.RecipeView{
			ID:               r.ID,
			Tags:             tagViews(r.Tags),
			Author:           userView(&r.Author, following[r.AuthorID]),
			Ingredients:      ingredientLines(r.Ingredients),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            s.images.URL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return views, nil
}

func (s *RecipeService) summary(r *model.Recipe) types.RecipeSummary {
	return types.RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Image:       s.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

func tagViews(tags []model.Tag) []types.TagView {
	views := make([]types.TagView, len(tags))
	for i, t := range tags {
		views[i] = types.TagView{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
	}
	return views
}

func ingredientLines(lines []model.RecipeIngredient) []types.IngredientLine {
	views := make([]types.IngredientLine, len(lines))
	for i, l := range lines {
		views[i] = types.IngredientLine{
			ID:              l.IngredientID,
			Name:            l.Ingredient.Name,
			MeasurementUnit: l.Ingredient.MeasurementUnit,
			Amount:          l.Amount,
		}
	}
	return views
}

func userView(u *model.User, subscribed bool) types.UserView {
	return types.UserView{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}
