package middleware

import (
	"context"
	"strings"

	"natours/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"

	// TokenCookie carries the credential for browser sessions.
	TokenCookie = "jwt"
	// LoggedOutToken replaces the cookie value on logout.
	LoggedOutToken = "loggedout"
)

// Authenticator resolves a raw credential into the current identity.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (domain.Identity, error)
}

// Protect rejects the request unless it carries a valid, fresh credential.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.Authenticate(c.Request.Context(), BearerToken(c))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth reads the cookie credential for rendered pages. Any failure
// leaves the request anonymous.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(TokenCookie)
		if err == nil && raw != "" && raw != LoggedOutToken {
			if id, err := auth.Authenticate(c.Request.Context(), raw); err == nil {
				SetIdentity(c, id)
			}
		}
		c.Next()
	}
}

// BearerToken returns the Authorization bearer token, falling back to the cookie.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if raw, err := c.Cookie(TokenCookie); err == nil && raw != LoggedOutToken {
		return raw
	}
	return ""
}

func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the caller set by Protect or OptionalAuth.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
