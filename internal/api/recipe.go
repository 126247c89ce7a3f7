package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListFilename = "shopping_cart.pdf"

// recipeTypeErrors classifies mistyped recipe fields the same way the
// service classifies bad values.
var recipeTypeErrors = map[string]error{
	"cooking_time":       service.ErrInvalidCookingTime,
	"image":              service.ErrInvalidImage,
	"tags":               service.ErrUnknownTag,
	"ingredients.id":     service.ErrUnknownIngredient,
	"ingredients.amount": service.ErrInvalidAmount,
}

type RecipeHandler struct {
	recipes       service.IRecipeService
	shopping      service.IShoppingListService
	pages         Paginator
	createLimiter *middleware.RateLimiter
	modifyLimiter *middleware.RateLimiter
}

// NewRecipeHandler wires the recipe endpoints. Nil limiters disable rate
// limiting.
func NewRecipeHandler(recipes service.IRecipeService, shopping service.IShoppingListService, pages Paginator, createLimiter, modifyLimiter *middleware.RateLimiter) *RecipeHandler {
	return &RecipeHandler{
		recipes:       recipes,
		shopping:      shopping,
		pages:         pages,
		createLimiter: createLimiter,
		modifyLimiter: modifyLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.RequireAuth()
	perRecipe := h.modifyLimiter.PerRecipeRateLimitMiddleware()

	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.POST("", auth, h.createLimiter.RateLimitMiddleware(), h.CreateRecipe)
		recipes.GET("/download_shopping_cart", auth, h.DownloadShoppingCart)
		recipes.GET("/shopping_cart/download", auth, h.DownloadShoppingCart)
		recipes.GET("/:id", h.GetRecipe)
		recipes.PATCH("/:id", auth, perRecipe, h.UpdateRecipe)
		recipes.DELETE("/:id", auth, perRecipe, h.DeleteRecipe)
		recipes.POST("/:id/favorite", auth, perRecipe, h.AddFavorite)
		recipes.DELETE("/:id/favorite", auth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", auth, perRecipe, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", auth, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) recipeFilter(c *gin.Context) (types.RecipeFilter, error) {
	var filter types.RecipeFilter
	author, ok, err := intQuery(c, "author")
	if err != nil {
		return filter, err
	}
	if ok {
		if author < 1 {
			return filter, fmt.Errorf("%w: author must be a user id", service.ErrInvalidQuery)
		}
		id := uint(author)
		filter.AuthorID = &id
	}
	filter.TagSlugs = listQuery(c, "tags")
	if filter.IsFavorited, err = boolQuery(c, "is_favorited"); err != nil {
		return filter, err
	}
	if filter.IsInShoppingCart, err = boolQuery(c, "is_in_shopping_cart"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter, err := h.recipeFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	page, err := h.pages.Request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	views, total, err := h.recipes.ListRecipes(c.Request.Context(), middleware.IdentityFrom(c), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, views))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.recipes.GetRecipe(c.Request.Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if err := bindJSON(c, &req, recipeTypeErrors); err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.recipes.CreateRecipe(c.Request.Context(), middleware.IdentityFrom(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req types.RecipeWriteRequest
	if err := bindJSON(c, &req, recipeTypeErrors); err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.recipes.UpdateRecipe(c.Request.Context(), middleware.IdentityFrom(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}

type addFunc func(c *gin.Context, id uint) (*types.RecipeSummary, error)

type removeFunc func(c *gin.Context, id uint) error

func (h *RecipeHandler) add(c *gin.Context, fn addFunc) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	summary, err := fn(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *RecipeHandler) remove(c *gin.Context, fn removeFunc) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := fn(c, id); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.add(c, func(c *gin.Context, id uint) (*types.RecipeSummary, error) {
		return h.recipes.AddFavorite(c.Request.Context(), middleware.IdentityFrom(c), id)
	})
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.remove(c, func(c *gin.Context, id uint) error {
		return h.recipes.RemoveFavorite(c.Request.Context(), middleware.IdentityFrom(c), id)
	})
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.add(c, func(c *gin.Context, id uint) (*types.RecipeSummary, error) {
		return h.recipes.AddToShoppingCart(c.Request.Context(), middleware.IdentityFrom(c), id)
	})
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.remove(c, func(c *gin.Context, id uint) error {
		return h.recipes.RemoveFromShoppingCart(c.Request.Context(), middleware.IdentityFrom(c), id)
	})
}

// DownloadShoppingCart streams the requester's shopping list as a PDF.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	doc, err := h.shopping.Render(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shoppingListFilename))
	c.Data(http.StatusOK, "application/pdf", doc)
}
