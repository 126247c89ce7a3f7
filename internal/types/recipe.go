package types

// TagView is a fully resolved tag.
type TagView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// IngredientLine is an ingredient resolved together with its amount in a recipe.
type IngredientLine struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

// RecipeView is the full representation returned by recipe list, detail
// and write endpoints.
type RecipeView struct {
	ID               uint             `json:"id"`
	Tags             []TagView        `json:"tags"`
	Author           UserView         `json:"author"`
	Ingredients      []IngredientLine `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int              `json:"cooking_time"`
}

// RecipeSummary is the short representation used by relation toggles and
// subscription listings.
type RecipeSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// ShoppingLine is one aggregated row of a shopping list.
type ShoppingLine struct {
	Name   string  `json:"name"`
	Unit   string  `json:"measurement_unit"`
	Amount float64 `json:"amount"`
}
