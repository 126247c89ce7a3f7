package testhelpers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/model"
)

// TestPassword is the password of every fixture user.
const TestPassword = "correct-horse-battery"

var colorSeq atomic.Int64

// CreateUser inserts a user whose email is <username>@example.com.
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		LastName:     "Tester",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTag inserts a tag whose slug is the lower-cased name.
func CreateTag(t *testing.T, db *gorm.DB, name string) *model.Tag {
	t.Helper()
	tag := &model.Tag{
		Name:  name,
		Color: fmt.Sprintf("#%06X", colorSeq.Add(1)),
		Slug:  strings.ToLower(name),
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *model.Ingredient {
	t.Helper()
	ingredient := &model.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// CreateRecipe inserts a recipe directly, bypassing validation.
func CreateRecipe(t *testing.T, db *gorm.DB, authorID uint, name string, tags []*model.Tag, lines ...model.RecipeIngredient) *model.Recipe {
	t.Helper()
	recipe := &model.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        "Mix and cook.",
		CookingTime: 15,
		Image:       "recipes/" + strings.ReplaceAll(strings.ToLower(name), " ", "-") + ".png",
	}
	require.NoError(t, db.Omit(clause.Associations).Create(recipe).Error)
	for _, tag := range tags {
		require.NoError(t, db.Create(&model.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}).Error)
	}
	for _, line := range lines {
		line.RecipeID = recipe.ID
		require.NoError(t, db.Omit(clause.Associations).Create(&line).Error)
	}
	return recipe
}

// Line is shorthand for a recipe line referencing ingredient.
func Line(ingredient *model.Ingredient, amount float64) model.RecipeIngredient {
	return model.RecipeIngredient{IngredientID: ingredient.ID, Amount: amount}
}

// ImagePayload returns a tiny PNG encoded as a data URI.
func ImagePayload(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
