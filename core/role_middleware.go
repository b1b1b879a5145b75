package core

import (
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when the principal holds role.
func RequireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abortWith(c, unauthenticated())
			return
		}
		if !p.Roles.Has(role) {
			abortWith(c, forbidden())
			return
		}
		c.Next()
	}
}
