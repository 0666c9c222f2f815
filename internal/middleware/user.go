package middleware

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library

	"aigc_platform/internal/domain" // Domain models
)

// CurrentUserMiddleware loads the authenticated user from the database on each
// request. Tokens of deleted or disabled users stop working immediately.
func CurrentUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint(UserIDKey)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
				return
			}
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to load current user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		}
		c.Set(CurrentUserKey, &user)
		c.Set(RoleKey, string(user.Role)) // Database role wins over the token claim
		c.Next()
	}
}

// CurrentUser returns the user stored by CurrentUserMiddleware.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// RoleMiddleware lets the request through only if the current role is one of roles.
// It must run after CurrentUserMiddleware or JWTAuthMiddleware.
func RoleMiddleware(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetString(RoleKey))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// AdminOnly admits admins and super admins.
func AdminOnly() gin.HandlerFunc {
	return RoleMiddleware(domain.RoleAdmin, domain.RoleSuperAdmin)
}

// SuperAdminOnly admits super admins.
func SuperAdminOnly() gin.HandlerFunc {
	return RoleMiddleware(domain.RoleSuperAdmin)
}
