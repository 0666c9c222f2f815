package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging

	"aigc_platform/internal/auth"         // Login errors
	"aigc_platform/internal/domain"       // Shared errors
	"aigc_platform/internal/invite"       // Invite reasons
	"aigc_platform/internal/leaderboard"  // Leaderboard errors
	"aigc_platform/internal/points"       // Ledger errors
	"aigc_platform/internal/recharge"     // Recharge errors
	"aigc_platform/internal/registration" // Registration errors
)

// respondError writes the HTTP form of err. Business errors become 4xx with
// their message, storage failures 503, anything else 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	switch {
	case errors.Is(err, registration.ErrInvalidInvite):
		status = http.StatusBadRequest
		body = gin.H{"error": registration.ErrInvalidInvite.Error(), "reason": invite.Reason(err)}
	case errors.Is(err, registration.ErrDuplicateUsername),
		errors.Is(err, registration.ErrDuplicateEmail),
		errors.Is(err, recharge.ErrOrderNotPending):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, recharge.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, points.ErrInsufficientBalance),
		errors.Is(err, points.ErrInvalidAmount),
		errors.Is(err, points.ErrInvalidAction),
		errors.Is(err, points.ErrSelfTransfer),
		errors.Is(err, points.ErrRecipientInactive),
		errors.Is(err, leaderboard.ErrInvalidLimit),
		errors.Is(err, recharge.ErrUnknownPackage),
		errors.Is(err, recharge.ErrUnsupportedMethod):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountDisabled):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrStore):
		status = http.StatusServiceUnavailable
		body = gin.H{"error": "Service temporarily unavailable"}
	default:
		body = gin.H{"error": "Internal server error"}
	}

	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, body)
}
