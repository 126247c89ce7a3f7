package types

// IngredientAmount references a catalog ingredient inside a recipe write.
type IngredientAmount struct {
	ID     uint    `json:"id"`
	Amount float64 `json:"amount"`
}

// RecipeWriteRequest is the body of recipe create and update calls.
// Scalar pointers distinguish an omitted field from a zero value; tags and
// ingredients are always resubmitted in full.
type RecipeWriteRequest struct {
	Name        *string            `json:"name"`
	Text        *string            `json:"text"`
	CookingTime *int               `json:"cooking_time"`
	Image       *string            `json:"image"`
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// RecipeFilter narrows a recipe listing. Nil fields are not applied.
type RecipeFilter struct {
	AuthorID         *uint
	TagSlugs         []string
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	AuthToken string `json:"auth_token"`
}
