package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token, loads the account and puts
// userID and userRole on the context. Inactive accounts are rejected.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing bearer token"})
			c.Abort()
			return
		}

		var role, status string
		err := db.QueryRow("SELECT role, status FROM users WHERE id = ?", userID).Scan(&role, &status)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking user"})
			}
			c.Abort()
			return
		}
		if status != "active" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

// OptionalAuth sets userID when a valid token is present but lets anonymous
// requests through. Used by checkout, where guests may order.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := bearerUserID(c); ok {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func bearerUserID(c *gin.Context) (int64, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return 0, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}
	userID, err := auth.ValidateToken(parts[1])
	if err != nil {
		return 0, false
	}
	return userID, true
}
