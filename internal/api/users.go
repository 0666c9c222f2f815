package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library

	"aigc_platform/internal/domain"     // Domain models
	"aigc_platform/internal/invite"     // Invite views
	"aigc_platform/internal/middleware" // Current user
)

// MeHandler returns the authenticated user
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
	}
}

// PublicUserHandler returns the public view of any active user
func PublicUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user domain.User
		err := db.WithContext(c.Request.Context()).Where("id = ? AND is_active = ?", id, true).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrUserNotFound)
			return
		}
		if err != nil {
			respondError(c, domain.StoreError("find user", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user.Public()})
	}
}

// ValidateInviteHandler reports whether a code can be used to register
func ValidateInviteHandler(v *invite.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := v.Inspect(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// MyInviteCodeHandler returns the caller's invite code and remaining quota
func MyInviteCodeHandler(v *invite.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := v.Info(c.Request.Context(), c.GetUint(middleware.UserIDKey))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// InvitedUsersHandler lists the users who registered with the caller's code
func InvitedUsersHandler(v *invite.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := v.Info(c.Request.Context(), c.GetUint(middleware.UserIDKey))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invited_users": info.InvitedUsers, "total": len(info.InvitedUsers)})
	}
}
