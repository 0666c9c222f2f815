package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"aigc_platform/internal/auth"         // Login service
	"aigc_platform/internal/leaderboard"  // Ranking cache
	"aigc_platform/internal/registration" // Registration workflow
	"aigc_platform/internal/utils"        // Cache helper
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=50"`  // Unique username
	Email      string `json:"email" binding:"required,email,max=100"`    // Unique email
	Password   string `json:"password" binding:"required,min=8,max=100"` // Plain password, hashed before storage
	InviteCode string `json:"invite_code"`                               // Required when invite gating is on
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username or email
	Password string `json:"password" binding:"required"` // Plain password
}

// RegisterHandler creates a user through the registration workflow
func RegisterHandler(svc *registration.Service, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
		user, err := svc.Register(c.Request.Context(), registration.Request{
			Username:   req.Username,
			Email:      req.Email,
			Password:   req.Password,
			InviteCode: req.InviteCode,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// A new user with a registration bonus may enter the rankings
		board.Invalidate(c.Request.Context())
		invalidateBalances(c.Request.Context(), cache)
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(svc *auth.Service, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		if res.DailyBonus > 0 {
			board.Invalidate(c.Request.Context())
			invalidateBalances(c.Request.Context(), cache, res.User.ID)
		}
		c.JSON(http.StatusOK, res)
	}
}
