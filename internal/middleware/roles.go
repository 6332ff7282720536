package middleware

import (
	"net/http"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// These run AFTER AuthMiddleware, which already loaded the role onto the
// context.
//

// AdminMiddleware allows only admin accounts through.
func AdminMiddleware() gin.HandlerFunc {
	return requireRole(models.RoleAdmin)
}

// OutletMiddleware allows outlet accounts and admins (who manage outlets).
func OutletMiddleware() gin.HandlerFunc {
	return requireRole(models.RoleOutlet, models.RoleAdmin)
}

func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawRole, exists := c.Get("userRole")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context (AuthMiddleware must run first)"})
			c.Abort()
			return
		}
		role := rawRole.(string)

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient role"})
		c.Abort()
	}
}
