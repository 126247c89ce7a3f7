package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	ContextUserID   = "user_id"
	contextIdentity = "identity"
)

var errInvalidToken = &service.Error{
	Kind:    service.KindUnauthenticated,
	Code:    "authentication_failed",
	Message: "invalid or expired token",
}

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// Authenticate resolves the requester from the Authorization header. Both
// "Token <jwt>" and "Bearer <jwt>" are accepted. A request without the
// header continues as anonymous; a bad token is rejected outright.
func Authenticate(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Set(contextIdentity, service.Anonymous())
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || (scheme != "Token" && scheme != "Bearer") || strings.TrimSpace(token) == "" {
			_ = c.Error(errInvalidToken)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			_ = c.Error(errInvalidToken)
			c.Abort()
			return
		}

		c.Set(contextIdentity, service.Authenticated(claims.UserID))
		c.Set(ContextUserID, claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).Authenticated {
			_ = c.Error(service.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the requester stored by Authenticate, or the
// anonymous identity when none was stored.
func IdentityFrom(c *gin.Context) service.Identity {
	if v, ok := c.Get(contextIdentity); ok {
		if id, ok := v.(service.Identity); ok {
			return id
		}
	}
	return service.Anonymous()
}
