package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // Header parsing

	"github.com/gin-gonic/gin" // Gin web framework

	"aigc_platform/internal/utils" // JWT helpers
)

// Context keys set by the auth middlewares.
const (
	UserIDKey      = "userID"
	RoleKey        = "role"
	CurrentUserKey = "currentUser"
)

// JWTAuthMiddleware validates the bearer token and stores the caller's id and role
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Caller id for handlers
		c.Set(RoleKey, claims.Role)     // Role at token issue time
		c.Next()
	}
}
