package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

var firstPage = types.PageRequest{Page: 1, Limit: 10}

func recipeIDs(views []types.RecipeView) []uint {
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestListRecipesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := testhelpers.CreateRecipe(t, f.db, f.author.ID, "First", []*model.Tag{f.breakfast}, testhelpers.Line(f.eggs, 1))
	second := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Second", []*model.Tag{f.dinner}, testhelpers.Line(f.milk, 1))
	third := testhelpers.CreateRecipe(t, f.db, f.reader.ID, "Third", []*model.Tag{f.dessert}, testhelpers.Line(f.flour, 1))

	views, total, err := f.recipes.ListRecipes(ctx, Anonymous(), types.RecipeFilter{}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, recipeIDs(views))

	views, total, err = f.recipes.ListRecipes(ctx, Anonymous(), types.RecipeFilter{}, types.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []uint{first.ID}, recipeIDs(views))
}

func TestListRecipesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	morning := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Morning", []*model.Tag{f.breakfast}, testhelpers.Line(f.eggs, 1))
	evening := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Evening", []*model.Tag{f.dinner, f.breakfast}, testhelpers.Line(f.milk, 1))
	sweet := testhelpers.CreateRecipe(t, f.db, f.reader.ID, "Sweet", []*model.Tag{f.dessert}, testhelpers.Line(f.flour, 1))

	_, err := f.recipes.AddFavorite(ctx, f.as(f.reader), morning.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddToShoppingCart(ctx, f.as(f.reader), sweet.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		viewer Identity
		filter types.RecipeFilter
		want   []uint
	}{
		{"author", Anonymous(), types.RecipeFilter{AuthorID: &f.reader.ID}, []uint{sweet.ID}},
		{"single tag", Anonymous(), types.RecipeFilter{TagSlugs: []string{"dinner"}}, []uint{evening.ID}},
		{"tags match any", Anonymous(), types.RecipeFilter{TagSlugs: []string{"dinner", "dessert"}}, []uint{sweet.ID, evening.ID}},
		{"tag shared by two recipes is listed once each", Anonymous(), types.RecipeFilter{TagSlugs: []string{"breakfast", "dinner"}}, []uint{evening.ID, morning.ID}},
		{"unknown tag", Anonymous(), types.RecipeFilter{TagSlugs: []string{"brunch"}}, []uint{}},
		{"favorited", f.as(f.reader), types.RecipeFilter{IsFavorited: ptr(true)}, []uint{morning.ID}},
		{"not favorited", f.as(f.reader), types.RecipeFilter{IsFavorited: ptr(false)}, []uint{sweet.ID, evening.ID}},
		{"in cart", f.as(f.reader), types.RecipeFilter{IsInShoppingCart: ptr(true)}, []uint{sweet.ID}},
		{"favorited and by author", f.as(f.reader), types.RecipeFilter{IsFavorited: ptr(true), AuthorID: &f.reader.ID}, []uint{}},
		{"anonymous favorited", Anonymous(), types.RecipeFilter{IsFavorited: ptr(true)}, []uint{}},
		{"anonymous in cart", Anonymous(), types.RecipeFilter{IsInShoppingCart: ptr(false)}, []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, total, err := f.recipes.ListRecipes(ctx, tt.viewer, tt.filter, firstPage)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recipeIDs(views))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestViewerFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Pancakes", []*model.Tag{f.breakfast}, testhelpers.Line(f.flour, 100))
	other := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Porridge", []*model.Tag{f.breakfast}, testhelpers.Line(f.milk, 200))

	_, err := f.recipes.AddFavorite(ctx, f.as(f.reader), recipe.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddToShoppingCart(ctx, f.as(f.reader), recipe.ID)
	require.NoError(t, err)
	_, err = f.users.Subscribe(ctx, f.as(f.reader), f.author.ID, 0)
	require.NoError(t, err)

	t.Run("anonymous sees no flags", func(t *testing.T) {
		views, _, err := f.recipes.ListRecipes(ctx, Anonymous(), types.RecipeFilter{}, firstPage)
		require.NoError(t, err)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.False(t, v.IsFavorited)
			assert.False(t, v.IsInShoppingCart)
			assert.False(t, v.Author.IsSubscribed)
		}
	})

	t.Run("flags belong to the viewer", func(t *testing.T) {
		view, err := f.recipes.GetRecipe(ctx, f.as(f.reader), recipe.ID)
		require.NoError(t, err)
		assert.True(t, view.IsFavorited)
		assert.True(t, view.IsInShoppingCart)
		assert.True(t, view.Author.IsSubscribed)

		view, err = f.recipes.GetRecipe(ctx, f.as(f.reader), other.ID)
		require.NoError(t, err)
		assert.False(t, view.IsFavorited)
		assert.False(t, view.IsInShoppingCart)

		view, err = f.recipes.GetRecipe(ctx, f.as(f.author), recipe.ID)
		require.NoError(t, err)
		assert.False(t, view.IsFavorited, "another user's favorite does not leak")
		assert.False(t, view.IsInShoppingCart)
	})
}

func countQueries(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	n := 0
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		n++
	}))
	return &n
}

func TestListRecipesQueryCountIsConstant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queries := countQueries(t, f.db)

	list := func(viewer Identity) int {
		*queries = 0
		_, _, err := f.recipes.ListRecipes(ctx, viewer, types.RecipeFilter{}, firstPage)
		require.NoError(t, err)
		return *queries
	}

	for i := 0; i < 2; i++ {
		r := testhelpers.CreateRecipe(t, f.db, f.author.ID, "Small "+string(rune('A'+i)), []*model.Tag{f.breakfast}, testhelpers.Line(f.eggs, 1))
		_, err := f.recipes.AddFavorite(ctx, f.as(f.reader), r.ID)
		require.NoError(t, err)
	}
	smallAnon, smallAuth := list(Anonymous()), list(f.as(f.reader))

	for i := 0; i < 6; i++ {
		testhelpers.CreateRecipe(t, f.db, f.reader.ID, "Large "+string(rune('A'+i)), []*model.Tag{f.dinner, f.dessert}, testhelpers.Line(f.milk, 1), testhelpers.Line(f.flour, 2))
	}
	largeAnon, largeAuth := list(Anonymous()), list(f.as(f.reader))

	assert.Equal(t, smallAnon, largeAnon)
	assert.Equal(t, smallAuth, largeAuth)
	assert.Equal(t, smallAnon+3, smallAuth, "one existence query per relation kind")
}

func TestGetRecipeNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.recipes.GetRecipe(context.Background(), Anonymous(), 404)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}
