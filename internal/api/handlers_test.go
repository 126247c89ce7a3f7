package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type stubRenderer struct{}

func (stubRenderer) Render(lines []types.ShoppingLine) ([]byte, error) {
	return []byte(fmt.Sprintf("%%PDF lines=%d", len(lines))), nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService

	alice *model.User
	bob   *model.User
	lunch *model.Tag
	soup  *model.Tag
	leek  *model.Ingredient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	images, err := service.NewLocalImageStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	auth := service.NewAuthService(db, "a-test-secret-of-some-length", time.Hour)
	catalog := service.NewCatalogService(db)
	recipes := service.NewRecipeService(db, catalog, images, zap.NewNop())
	users := service.NewUserService(db, recipes)
	shopping := service.NewShoppingListService(db, stubRenderer{})
	pages := Paginator{DefaultLimit: 2, MaxLimit: 10}

	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	group := router.Group("/api", middleware.Authenticate(auth))
	NewAuthHandler(auth).RegisterRoutes(group)
	NewCatalogHandler(catalog).RegisterRoutes(group)
	NewUserHandler(users, pages).RegisterRoutes(group)
	NewRecipeHandler(recipes, shopping, pages, nil, nil).RegisterRoutes(group)

	return &testEnv{
		db:     db,
		router: router,
		auth:   auth,
		alice:  testhelpers.CreateUser(t, db, "alice"),
		bob:    testhelpers.CreateUser(t, db, "bob"),
		lunch:  testhelpers.CreateTag(t, db, "Lunch"),
		soup:   testhelpers.CreateTag(t, db, "Soup"),
		leek:   testhelpers.CreateIngredient(t, db, "leek", "g"),
	}
}

func (e *testEnv) token(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(u)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[middleware.ErrorResponse](t, w).Code
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    env.alice.Email,
		"password": testhelpers.TestPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[types.LoginResponse](t, w).AuthToken
	assert.NotEmpty(t, token)

	w = env.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[types.UserView](t, w).Username)

	w = env.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    env.alice.Email,
		"password": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, w))

	w = env.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_field", errorCode(t, w))

	w = env.request(t, http.MethodPost, "/api/auth/token/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/token/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvalidTokenIsRejectedOnPublicEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/recipes", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication_failed", errorCode(t, w))

	w = env.request(t, http.MethodGet, "/api/recipes", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	testhelpers.CreateIngredient(t, env.db, "lemon", "pcs")
	testhelpers.CreateIngredient(t, env.db, "salt", "g")

	w := env.request(t, http.MethodGet, "/api/ingredients?name=LE", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ingredients := decode[[]model.Ingredient](t, w)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "leek", ingredients[0].Name)
	assert.Equal(t, "lemon", ingredients[1].Name)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/ingredients/%d", env.leek.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"leek","measurement_unit":"g"}`, env.leek.ID), w.Body.String())

	w = env.request(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Tag](t, w), 2)

	w = env.request(t, http.MethodGet, "/api/tags/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodGet, "/api/tags/lunch", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.token(t, env.alice)
	bobToken := env.token(t, env.bob)

	create := func(name string, tags ...uint) types.RecipeView {
		w := env.request(t, http.MethodPost, "/api/recipes", aliceToken, map[string]any{
			"name":         name,
			"text":         "Simmer.",
			"cooking_time": 30,
			"image":        testhelpers.ImagePayload(t),
			"tags":         tags,
			"ingredients":  []map[string]any{{"id": env.leek.ID, "amount": 200}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode[types.RecipeView](t, w)
	}
	first := create("Leek soup", env.soup.ID)
	second := create("Leek tart", env.lunch.ID)
	third := create("Leek stew", env.lunch.ID, env.soup.ID)

	w := env.request(t, http.MethodGet, "/api/recipes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.RecipeView]](t, w)
	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, third.ID, page.Results[0].ID)
	assert.Equal(t, second.ID, page.Results[1].ID)
	require.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)

	w = env.request(t, http.MethodGet, "/api/recipes?tags=soup&limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[types.Page[types.RecipeView]](t, w)
	require.Len(t, page.Results, 2)
	assert.Equal(t, third.ID, page.Results[0].ID)
	assert.Equal(t, first.ID, page.Results[1].ID)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/recipes?author=%d&page=9", env.alice.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.Page[types.RecipeView]](t, w).Results)

	w = env.request(t, http.MethodGet, "/api/recipes?is_favorited=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_query", errorCode(t, w))

	w = env.request(t, http.MethodGet, "/api/recipes/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	path := fmt.Sprintf("/api/recipes/%d", first.ID)
	w = env.request(t, http.MethodPatch, path, "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPatch, path, bobToken, map[string]any{
		"tags":        []uint{env.soup.ID},
		"ingredients": []map[string]any{{"id": env.leek.ID, "amount": 1}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPatch, path, aliceToken, map[string]any{
		"name":        "Leek and potato soup",
		"tags":        []uint{env.soup.ID},
		"ingredients": []map[string]any{{"id": env.leek.ID, "amount": 250}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.RecipeView](t, w)
	assert.Equal(t, "Leek and potato soup", updated.Name)
	assert.Equal(t, first.Image, updated.Image)
	assert.Equal(t, 250.0, updated.Ingredients[0].Amount)

	w = env.request(t, http.MethodPost, "/api/recipes", aliceToken, map[string]any{
		"name":         "Nothing",
		"text":         "Empty.",
		"cooking_time": 1,
		"image":        testhelpers.ImagePayload(t),
		"tags":         []uint{},
		"ingredients":  []map[string]any{{"id": env.leek.ID, "amount": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_tags", errorCode(t, w))
}

func TestRecipeRelationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	recipe := testhelpers.CreateRecipe(t, env.db, env.alice.ID, "Leek soup", []*model.Tag{env.soup}, testhelpers.Line(env.leek, 300))
	bobToken := env.token(t, env.bob)

	for _, relation := range []string{"favorite", "shopping_cart"} {
		t.Run(relation, func(t *testing.T) {
			path := fmt.Sprintf("/api/recipes/%d/%s", recipe.ID, relation)

			w := env.request(t, http.MethodPost, path, bobToken, nil)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			summary := decode[types.RecipeSummary](t, w)
			assert.Equal(t, recipe.ID, summary.ID)
			assert.Equal(t, 15, summary.CookingTime)

			w = env.request(t, http.MethodPost, path, bobToken, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "already_exists", errorCode(t, w))

			w = env.request(t, http.MethodDelete, path, bobToken, nil)
			assert.Equal(t, http.StatusNoContent, w.Code)

			w = env.request(t, http.MethodDelete, path, bobToken, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "relation_not_found", errorCode(t, w))

			w = env.request(t, http.MethodPost, fmt.Sprintf("/api/recipes/999/%s", relation), bobToken, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "object_not_found", errorCode(t, w))
		})
	}
}

func TestDownloadShoppingCart(t *testing.T) {
	env := newTestEnv(t)
	recipe := testhelpers.CreateRecipe(t, env.db, env.alice.ID, "Leek soup", []*model.Tag{env.soup}, testhelpers.Line(env.leek, 300))
	bobToken := env.token(t, env.bob)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), bobToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{"/api/recipes/download_shopping_cart", "/api/recipes/shopping_cart/download"} {
		w = env.request(t, http.MethodGet, path, bobToken, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="shopping_cart.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF lines=1", w.Body.String())
	}

	w = env.request(t, http.MethodGet, "/api/recipes/download_shopping_cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"Leek soup", "Leek tart", "Leek stew"} {
		testhelpers.CreateRecipe(t, env.db, env.alice.ID, name, []*model.Tag{env.soup}, testhelpers.Line(env.leek, 100))
	}
	bobToken := env.token(t, env.bob)
	subscribe := fmt.Sprintf("/api/users/%d/subscribe", env.alice.ID)

	w := env.request(t, http.MethodPost, subscribe+"?recipes_limit=2", bobToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[types.SubscriptionView](t, w)
	assert.True(t, view.IsSubscribed)
	assert.Equal(t, int64(3), view.RecipesCount)
	assert.Len(t, view.Recipes, 2)

	w = env.request(t, http.MethodPost, subscribe, bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already_exists", errorCode(t, w))

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", env.bob.ID), bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "self_follow_not_allowed", errorCode(t, w))

	w = env.request(t, http.MethodPost, "/api/users/999/subscribe", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=1", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.SubscriptionView]](t, w)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, env.alice.ID, page.Results[0].ID)
	assert.Len(t, page.Results[0].Recipes, 1)

	w = env.request(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=few", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d", env.alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.UserView](t, w).IsSubscribed)

	w = env.request(t, http.MethodDelete, subscribe, bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[types.Page[types.UserView]](t, w)
	assert.Equal(t, int64(2), users.Count)
	for _, u := range users.Results {
		assert.False(t, u.IsSubscribed)
	}

	w = env.request(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecipeBodyWithMistypedFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	body := func(override map[string]any) map[string]any {
		b := map[string]any{
			"name":         "Leek soup",
			"text":         "Simmer.",
			"cooking_time": 30,
			"image":        testhelpers.ImagePayload(t),
			"tags":         []uint{env.soup.ID},
			"ingredients":  []map[string]any{{"id": env.leek.ID, "amount": 200}},
		}
		for k, v := range override {
			b[k] = v
		}
		return b
	}

	tests := []struct {
		name     string
		override map[string]any
		wantCode string
	}{
		{name: "fractional cooking time", override: map[string]any{"cooking_time": 1.5}, wantCode: "invalid_cooking_time"},
		{name: "textual cooking time", override: map[string]any{"cooking_time": "ten"}, wantCode: "invalid_cooking_time"},
		{name: "textual amount", override: map[string]any{"ingredients": []map[string]any{{"id": env.leek.ID, "amount": "two"}}}, wantCode: "invalid_amount"},
		{name: "negative ingredient id", override: map[string]any{"ingredients": []map[string]any{{"id": -1, "amount": 2}}}, wantCode: "unknown_ingredient"},
		{name: "numeric image", override: map[string]any{"image": 123}, wantCode: "invalid_image"},
		{name: "textual tag", override: map[string]any{"tags": []any{"soup"}}, wantCode: "unknown_tag"},
		{name: "numeric name", override: map[string]any{"name": 5}, wantCode: "invalid_field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, http.MethodPost, "/api/recipes", token, body(tt.override))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&model.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecipeListRejectsOverflowingPage(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/recipes?page=4611686018427387905&limit=2", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_query", errorCode(t, w))
}
