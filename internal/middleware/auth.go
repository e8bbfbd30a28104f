package middleware

import (
	"net/http"
	"strings"

	"github.com/01moynul/palett-api/internal/auth"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by Auth.
const (
	AccountIDKey = "accountID"
	RoleKey      = "role"
)

// Auth rejects requests without a valid Bearer token and stores the account
// id and role in the gin context.
func Auth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		claims, err := issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Success ---
		c.Set(AccountIDKey, claims.AccountID())
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: administrator role required"})
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account id, or "" on public routes.
func AccountID(c *gin.Context) string {
	return c.GetString(AccountIDKey)
}
