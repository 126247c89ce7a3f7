package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies a rejection so transports can map it to a status.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindForbidden       Kind = "forbidden"
	KindUnauthenticated Kind = "unauthenticated"
	KindTooLarge        Kind = "too_large"
)

// Error is a structured, client-facing rejection. Wrap it with fmt.Errorf
// and %w to attach detail; errors.Is matches on the sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrEmptyTags            = newError(KindValidation, "empty_tags", "at least one tag is required")
	ErrDuplicateTags        = newError(KindValidation, "duplicate_tags", "tags must not repeat")
	ErrUnknownTag           = newError(KindValidation, "unknown_tag", "tag does not exist")
	ErrEmptyIngredients     = newError(KindValidation, "empty_ingredients", "at least one ingredient is required")
	ErrUnknownIngredient    = newError(KindValidation, "unknown_ingredient", "ingredient does not exist")
	ErrDuplicateIngredients = newError(KindValidation, "duplicate_ingredients", "ingredients must not repeat")
	ErrInvalidAmount        = newError(KindValidation, "invalid_amount", "ingredient amount must be greater than zero")
	ErrInvalidCookingTime   = newError(KindValidation, "invalid_cooking_time", "cooking time must be a positive integer")
	ErrInvalidImage         = newError(KindValidation, "invalid_image", "image must be a base64 encoded picture")
	ErrInvalidField         = newError(KindValidation, "invalid_field", "field is invalid")
	ErrInvalidQuery         = newError(KindValidation, "invalid_query", "query parameter is invalid")
	ErrInvalidCredentials   = newError(KindValidation, "invalid_credentials", "unable to log in with provided credentials")
	ErrSelfFollow           = newError(KindValidation, "self_follow_not_allowed", "you cannot subscribe to yourself")

	ErrAlreadyExists    = newError(KindConflict, "already_exists", "already exists")
	ErrRelationNotFound = newError(KindConflict, "relation_not_found", "relation does not exist")

	ErrObjectNotFound     = newError(KindNotFound, "object_not_found", "not found")
	ErrRecipeNotFound     = newError(KindNotFound, "recipe_not_found", "recipe not found")
	ErrUserNotFound       = newError(KindNotFound, "user_not_found", "user not found")
	ErrIngredientNotFound = newError(KindNotFound, "ingredient_not_found", "ingredient not found")
	ErrTagNotFound        = newError(KindNotFound, "tag_not_found", "tag not found")

	ErrForbidden       = newError(KindForbidden, "forbidden", "you do not have permission to perform this action")
	ErrUnauthenticated = newError(KindUnauthenticated, "not_authenticated", "authentication credentials were not provided")

	ErrRequestTooLarge = newError(KindTooLarge, "request_too_large", "request body is too large")
)

// AsError extracts the structured rejection from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// isUniqueViolation recognises unique constraint failures from both
// supported drivers, translated or not.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
