package service

import (
	"github.com/pageza/foodgram/backend/internal/model"
)

// Identity is the requester as reported by the identity provider.
// The zero value is the anonymous viewer.
type Identity struct {
	UserID        uint
	Authenticated bool
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated returns the identity of a logged in user.
func Authenticated(userID uint) Identity {
	return Identity{UserID: userID, Authenticated: true}
}

// RequireAuthenticated rejects anonymous identities.
func RequireAuthenticated(id Identity) error {
	if !id.Authenticated {
		return ErrUnauthenticated
	}
	return nil
}

// CanModifyRecipe allows update and delete to the author only.
func CanModifyRecipe(id Identity, recipe *model.Recipe) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if recipe.AuthorID != id.UserID {
		return ErrForbidden
	}
	return nil
}
