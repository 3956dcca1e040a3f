package middleware

import (
	"natours/internal/domain"

	"github.com/gin-gonic/gin"
)

const msgNotLoggedIn = "You are not logged in. Please login to get a token"

// RestrictTo lets through callers whose role is in roles. It must run after
// Protect and fails closed without an identity.
func RestrictTo(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			_ = c.Error(domain.AuthenticationError{Msg: msgNotLoggedIn})
			c.Abort()
			return
		}
		if !id.HasRole(roles...) {
			_ = c.Error(domain.AuthorizationError{})
			c.Abort()
			return
		}
		c.Next()
	}
}
