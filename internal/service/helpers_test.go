package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recordingRenderer struct {
	lines []types.ShoppingLine
	err   error
}

func (r *recordingRenderer) Render(lines []types.ShoppingLine) ([]byte, error) {
	r.lines = lines
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-test"), nil
}

type fixture struct {
	db        *gorm.DB
	mediaRoot string
	catalog   *CatalogService
	recipes   *RecipeService
	users     *UserService
	shopping  *ShoppingListService
	renderer  *recordingRenderer
	logger    *zap.Logger
	logs      *observer.ObservedLogs

	author *model.User
	reader *model.User

	breakfast *model.Tag
	dinner    *model.Tag
	dessert   *model.Tag

	eggs  *model.Ingredient
	milk  *model.Ingredient
	flour *model.Ingredient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	mediaRoot := t.TempDir()
	images, err := NewLocalImageStore(mediaRoot, "/media/")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	catalog := NewCatalogService(db)
	recipes := NewRecipeService(db, catalog, images, logger)
	renderer := &recordingRenderer{}

	return &fixture{
		db:        db,
		mediaRoot: mediaRoot,
		catalog:   catalog,
		recipes:   recipes,
		users:     NewUserService(db, recipes),
		shopping:  NewShoppingListService(db, renderer),
		renderer:  renderer,
		logger:    logger,
		logs:      logs,
		author:    testhelpers.CreateUser(t, db, "author"),
		reader:    testhelpers.CreateUser(t, db, "reader"),
		breakfast: testhelpers.CreateTag(t, db, "Breakfast"),
		dinner:    testhelpers.CreateTag(t, db, "Dinner"),
		dessert:   testhelpers.CreateTag(t, db, "Dessert"),
		eggs:      testhelpers.CreateIngredient(t, db, "eggs", "pcs"),
		milk:      testhelpers.CreateIngredient(t, db, "milk", "ml"),
		flour:     testhelpers.CreateIngredient(t, db, "flour", "g"),
	}
}

func (f *fixture) as(u *model.User) Identity {
	return Authenticated(u.ID)
}

// validRequest is a complete create request for the fixture catalog.
func (f *fixture) validRequest(t *testing.T) *types.RecipeWriteRequest {
	name := "Omelette"
	text := "Whisk the eggs with milk and fry."
	cookingTime := 10
	image := testhelpers.ImagePayload(t)
	return &types.RecipeWriteRequest{
		Name:        &name,
		Text:        &text,
		CookingTime: &cookingTime,
		Image:       &image,
		Tags:        []uint{f.breakfast.ID, f.dinner.ID},
		Ingredients: []types.IngredientAmount{
			{ID: f.eggs.ID, Amount: 2.0},
			{ID: f.milk.ID, Amount: 1.5},
		},
	}
}

func (f *fixture) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

// requireNoRecipeRows asserts that nothing of a recipe aggregate was written.
func (f *fixture) requireNoRecipeRows(t *testing.T) {
	t.Helper()
	require.Zero(t, f.count(t, &model.Recipe{}))
	require.Zero(t, f.count(t, &model.RecipeIngredient{}))
	require.Zero(t, f.count(t, &model.RecipeTag{}))
}

// storedImages lists the files in the media recipes directory.
func (f *fixture) storedImages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.mediaRoot, "recipes"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func ptr[T any](v T) *T {
	return &v
}

var errStorage = errors.New("storage unavailable")

// stickyImages stores images normally but cannot delete them.
type stickyImages struct {
	ImageStore
}

func (stickyImages) Delete(context.Context, string) error {
	return errStorage
}
