package model

import "time"

// Favorite marks a recipe as favorited by a user.
type Favorite struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_favorites_pair"`
	RecipeID uint      `gorm:"not null;uniqueIndex:idx_favorites_pair;index"`
	User     User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe   Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	AddedAt  time.Time `gorm:"autoCreateTime"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCart marks a recipe as being in a user's cart.
type ShoppingCart struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_shopping_carts_pair"`
	RecipeID uint      `gorm:"not null;uniqueIndex:idx_shopping_carts_pair;index"`
	User     User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe   Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	AddedAt  time.Time `gorm:"autoCreateTime"`
}

func (ShoppingCart) TableName() string {
	return "shopping_carts"
}

// Follow records that Follower subscribed to Followee's recipes.
type Follow struct {
	ID         uint      `gorm:"primaryKey"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Followee   User      `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
}

func (Follow) TableName() string {
	return "follows"
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCart{},
		&Follow{},
	}
}
