package middlewares

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)

		if !ok || identity.Role == "" {
			unauthenticated(c, "Missing identity context")
			return
		}

		if !slices.Contains(allowed, identity.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Access denied",
				"message": "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
