package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library

	"aigc_platform/internal/domain"      // Domain models
	"aigc_platform/internal/leaderboard" // Ranking cache
	"aigc_platform/internal/middleware"  // Caller identity
	"aigc_platform/internal/points"      // Ledger
	"aigc_platform/internal/utils"       // Cache helper
)

const historyCacheTTL = 60 * time.Second

// TransferRequest represents a points transfer between users
type TransferRequest struct {
	ToUsername  string `json:"to_username" binding:"required"` // Recipient username
	Amount      int64  `json:"amount" binding:"required,gt=0"` // Points to move
	Description string `json:"description" binding:"max=255"`  // Optional note
}

// historyPage is the cached shape of one page of point records
type historyPage struct {
	Records    []domain.PointRecord `json:"records"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"total_pages"`
	Cached     bool                 `json:"cached"`
}

// BalanceHandler returns the caller's current balance
func BalanceHandler(ledger *points.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bal, err := ledger.Balance(c.Request.Context(), c.GetUint(middleware.UserIDKey))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bal)
	}
}

// PointRecordsHandler returns the caller's paginated point history
func PointRecordsHandler(ledger *points.Ledger, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetUint(middleware.UserIDKey)
		page, pageSize := pagination(c)
		cacheKey := recordsKeyPrefix(userID) + "page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)

		var cached historyPage
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}

		records, total, err := ledger.History(ctx, userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := historyPage{
			Records:    records,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		}
		_ = cache.Set(ctx, cacheKey, resp, historyCacheTTL) // Best effort
		c.JSON(http.StatusOK, resp)
	}
}

// TransferHandler moves points from the caller to another user
func TransferHandler(db *gorm.DB, ledger *points.Ledger, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		fromID := c.GetUint(middleware.UserIDKey)
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var toUser domain.User
		err := db.WithContext(ctx).Select("id").Where("username = ?", req.ToUsername).Take(&toUser).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrUserNotFound)
			return
		}
		if err != nil {
			respondError(c, domain.StoreError("find recipient", err))
			return
		}

		bal, err := ledger.Transfer(ctx, fromID, toUser.ID, req.Amount, req.Description)
		if err != nil {
			respondError(c, err)
			return
		}
		board.Invalidate(ctx)
		invalidateBalances(ctx, cache, fromID, toUser.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Transfer successful", "balance": bal})
	}
}
