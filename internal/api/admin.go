package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library

	"aigc_platform/internal/domain"      // Domain models
	"aigc_platform/internal/leaderboard" // Ranking cache
	"aigc_platform/internal/middleware"  // Caller identity
	"aigc_platform/internal/points"      // Ledger
	"aigc_platform/internal/utils"       // Cache helper
)

const adminUsersCacheTTL = 60 * time.Second

// UpdateUserRequest changes a user's status or role; nil fields are left alone
type UpdateUserRequest struct {
	IsActive *bool        `json:"is_active"` // Enable or disable the account
	Role     *domain.Role `json:"role"`      // Super admins only
	Nickname *string      `json:"nickname" binding:"omitempty,max=50"`
}

// GrantPointsRequest adjusts a user's balance; negative amounts deduct
type GrantPointsRequest struct {
	Amount      int64  `json:"amount" binding:"required"`     // Signed delta, never zero
	Description string `json:"description" binding:"max=255"` // Shown in the user's history
}

// userListPage is the cached shape of one admin user listing
type userListPage struct {
	Users      []domain.User `json:"users"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
	Cached     bool          `json:"cached"`
}

// ListUsersHandler returns all users, optionally filtered by role, status or a search term
func ListUsersHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		var keyParts []string // Parts of the cache key
		for _, k := range []string{"role", "is_active", "q"} {
			keyParts = append(keyParts, k+"="+c.Query(k))
		}
		cacheKey := adminUsersPrefix + strings.Join(keyParts, ":") +
			":page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)

		var cached userListPage
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}

		query := db.WithContext(ctx).Model(&domain.User{})
		if role := c.Query("role"); role != "" {
			query = query.Where("role = ?", role)
		}
		if active := c.Query("is_active"); active != "" {
			v, err := strconv.ParseBool(active)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid is_active filter"})
				return
			}
			query = query.Where("is_active = ?", v)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			query = query.Where("username LIKE ? OR email LIKE ? OR nickname LIKE ?", like, like, like)
		}
		query = query.Session(&gorm.Session{}) // Reused for count and page

		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, domain.StoreError("count users", err))
			return
		}
		var users []domain.User
		if err := query.Order("id asc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, domain.StoreError("list users", err))
			return
		}
		resp := userListPage{
			Users:      users,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		}
		_ = cache.Set(ctx, cacheKey, resp, adminUsersCacheTTL) // Best effort
		c.JSON(http.StatusOK, resp)
	}
}

// UpdateUserHandler enables, disables, renames or re-roles a user
func UpdateUserHandler(db *gorm.DB, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, ok := pathID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		updates := map[string]any{}
		if req.IsActive != nil {
			if !*req.IsActive && id == c.GetUint(middleware.UserIDKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot disable your own account"})
				return
			}
			updates["is_active"] = *req.IsActive
		}
		if req.Role != nil {
			if domain.Role(c.GetString(middleware.RoleKey)) != domain.RoleSuperAdmin {
				c.JSON(http.StatusForbidden, gin.H{"error": "Only super admins can change roles"})
				return
			}
			if !req.Role.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
				return
			}
			updates["role"] = *req.Role
		}
		if req.Nickname != nil {
			updates["nickname"] = strings.TrimSpace(*req.Nickname)
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}

		res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			respondError(c, domain.StoreError("update user", res.Error))
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, domain.ErrUserNotFound)
			return
		}
		var user domain.User
		if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
			respondError(c, domain.StoreError("reload user", err))
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": c.GetUint(middleware.UserIDKey),
			"user_id":  id,
			"changes":  updates,
		}).Info("User updated by admin")

		// Status changes move users in and out of the rankings
		board.Invalidate(ctx)
		invalidateBalances(ctx, cache)
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// GrantPointsHandler credits or debits a user on behalf of an admin
func GrantPointsHandler(ledger *points.Ledger, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, ok := pathID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req GrantPointsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		description := req.Description
		if description == "" {
			description = "admin adjustment"
		}
		bal, err := ledger.Adjust(ctx, id, req.Amount, description)
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": c.GetUint(middleware.UserIDKey),
			"user_id":  id,
			"amount":   req.Amount,
		}).Info("Points adjusted by admin")
		board.Invalidate(ctx)
		invalidateBalances(ctx, cache, id)
		c.JSON(http.StatusOK, gin.H{
			"user_id":          id,
			"new_balance":      bal.Points,
			"new_total_earned": bal.TotalEarned,
		})
	}
}

// ListPointRecordsHandler returns all point records, with optional filtering by user, action, or date
func ListPointRecordsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		query := db.WithContext(c.Request.Context()).Model(&domain.PointRecord{})
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by user ID
		}
		if action := c.Query("action"); action != "" {
			query = query.Where("action = ?", action) // Filter by action tag
		}
		for _, f := range []struct{ param, cond string }{{"from", "created_at >= ?"}, {"to", "created_at < ?"}} {
			v := c.Query(f.param)
			if v == "" {
				continue
			}
			day, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Dates must be YYYY-MM-DD"})
				return
			}
			if f.param == "to" {
				day = day.AddDate(0, 0, 1) // Inclusive end date
			}
			query = query.Where(f.cond, day)
		}
		query = query.Session(&gorm.Session{})

		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, domain.StoreError("count point records", err))
			return
		}
		var records []domain.PointRecord
		if err := query.Order("created_at desc, id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error; err != nil {
			respondError(c, domain.StoreError("list point records", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"records":     records,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// Stats summarises the platform economy
type Stats struct {
	Users               int64 `json:"users"`
	ActiveUsers         int64 `json:"active_users"`
	PointsInCirculation int64 `json:"points_in_circulation"`
	PointsEarned        int64 `json:"points_earned_total"`
	PointRecords        int64 `json:"point_records"`
	RechargeOrders      int64 `json:"recharge_orders_paid"`
	RechargeRevenue     int64 `json:"recharge_revenue_cents"`
}

// StatsHandler returns platform-wide counters
func StatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())
		var s Stats
		steps := []struct {
			op  string
			run func() error
		}{
			{"count users", func() error { return db.Model(&domain.User{}).Count(&s.Users).Error }},
			{"count active users", func() error {
				return db.Model(&domain.User{}).Where("is_active = ?", true).Count(&s.ActiveUsers).Error
			}},
			{"sum points", func() error {
				return db.Model(&domain.User{}).Select("COALESCE(SUM(points), 0)").Scan(&s.PointsInCirculation).Error
			}},
			{"sum earned", func() error {
				return db.Model(&domain.User{}).Select("COALESCE(SUM(total_points_earned), 0)").Scan(&s.PointsEarned).Error
			}},
			{"count point records", func() error { return db.Model(&domain.PointRecord{}).Count(&s.PointRecords).Error }},
			{"count paid orders", func() error {
				return db.Model(&domain.PaymentRecord{}).Where("status = ?", domain.PaymentSuccess).Count(&s.RechargeOrders).Error
			}},
			{"sum revenue", func() error {
				return db.Model(&domain.PaymentRecord{}).Where("status = ?", domain.PaymentSuccess).
					Select("COALESCE(SUM(amount_cents), 0)").Scan(&s.RechargeRevenue).Error
			}},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				respondError(c, domain.StoreError(step.op, err))
				return
			}
		}
		c.JSON(http.StatusOK, s)
	}
}
