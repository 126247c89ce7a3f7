package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/model"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	GenerateToken(user *model.User) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// ICatalogService defines the interface for tag and ingredient lookups
type ICatalogService interface {
	ListIngredients(ctx context.Context, prefix string) ([]model.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*model.Ingredient, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetTag(ctx context.Context, id uint) (*model.Tag, error)
	GetTagsBySlug(ctx context.Context, slugs []string) ([]model.Tag, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	ListRecipes(ctx context.Context, viewer Identity, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeView, int64, error)
	GetRecipe(ctx context.Context, viewer Identity, id uint) (*types.RecipeView, error)
	CreateRecipe(ctx context.Context, viewer Identity, req *types.RecipeWriteRequest) (*types.RecipeView, error)
	UpdateRecipe(ctx context.Context, viewer Identity, id uint, req *types.RecipeWriteRequest) (*types.RecipeView, error)
	DeleteRecipe(ctx context.Context, viewer Identity, id uint) error
	AddFavorite(ctx context.Context, viewer Identity, recipeID uint) (*types.RecipeSummary, error)
	RemoveFavorite(ctx context.Context, viewer Identity, recipeID uint) error
	AddToShoppingCart(ctx context.Context, viewer Identity, recipeID uint) (*types.RecipeSummary, error)
	RemoveFromShoppingCart(ctx context.Context, viewer Identity, recipeID uint) error
}

// IUserService defines the interface for user profile and subscription operations
type IUserService interface {
	ListUsers(ctx context.Context, viewer Identity, page types.PageRequest) ([]types.UserView, int64, error)
	GetUser(ctx context.Context, viewer Identity, id uint) (*types.UserView, error)
	Me(ctx context.Context, viewer Identity) (*types.UserView, error)
	Subscribe(ctx context.Context, viewer Identity, followeeID uint, recipesLimit int) (*types.SubscriptionView, error)
	Unsubscribe(ctx context.Context, viewer Identity, followeeID uint) error
	Subscription(ctx context.Context, viewer Identity, followeeID uint, recipesLimit int) (*types.SubscriptionView, error)
	Subscriptions(ctx context.Context, viewer Identity, page types.PageRequest, recipesLimit int) ([]types.SubscriptionView, int64, error)
}

// IShoppingListService defines the interface for shopping list export
type IShoppingListService interface {
	Lines(ctx context.Context, viewer Identity) ([]types.ShoppingLine, error)
	Render(ctx context.Context, viewer Identity) ([]byte, error)
}
