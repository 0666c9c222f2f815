package api

import (
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library

	"aigc_platform/internal/auth"         // Login
	"aigc_platform/internal/config"       // Settings
	"aigc_platform/internal/invite"       // Invite validation
	"aigc_platform/internal/leaderboard"  // Rankings
	"aigc_platform/internal/middleware"   // Auth, roles, rate limits
	"aigc_platform/internal/points"       // Ledger
	"aigc_platform/internal/recharge"     // Recharge orders
	"aigc_platform/internal/registration" // Registration workflow
	"aigc_platform/internal/utils"        // Cache helper
)

const cachePrefix = "aigc:" // Namespace for every Redis key

// NewRouter wires the services onto a gin engine. rdb may be nil, which
// disables response caching.
func NewRouter(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient) *gin.Engine {
	cache := utils.NewCache(rdb, cachePrefix)

	ledger := points.NewLedger(db)
	invites := invite.NewValidator(db)
	board := leaderboard.New(db, cache, cfg.LeaderboardMax, cfg.LeaderboardCacheTTL)
	reg := registration.NewService(db, registration.Settings{
		InviteRequired:    cfg.InviteCodeRequired,
		DefaultQuota:      cfg.DefaultInviteQuota,
		RegistrationBonus: cfg.PointsForRegister,
	})
	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.JWTTTL, cfg.PointsForDailyLogin)
	rechargeSvc := recharge.NewService(db)

	var limiter *middleware.KeyedLimiter
	if cfg.AuthRatePerSecond > 0 {
		limiter = middleware.NewKeyedLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.MetricsMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Public routes
	authGroup := v1.Group("/auth", middleware.RateLimitMiddleware(limiter))
	authGroup.POST("/register", RegisterHandler(reg, board, cache)) // Registration endpoint
	authGroup.POST("/login", LoginHandler(authSvc, board, cache))   // Login endpoint
	v1.GET("/invite-codes/:code", ValidateInviteHandler(invites))   // Invite code check
	v1.GET("/leaderboard", LeaderboardHandler(board))               // Top users by points

	// Authenticated routes
	authed := v1.Group("", middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.CurrentUserMiddleware(db))
	authed.GET("/users/me", MeHandler())
	authed.GET("/users/me/invite-code", MyInviteCodeHandler(invites))
	authed.GET("/users/me/invited-users", InvitedUsersHandler(invites))
	authed.GET("/points/balance", BalanceHandler(ledger))
	authed.GET("/points/records", PointRecordsHandler(ledger, cache))
	authed.POST("/points/transfer", TransferHandler(db, ledger, board, cache))
	authed.GET("/points/packages", PackagesHandler(rechargeSvc))
	authed.POST("/points/recharge", CreateRechargeHandler(rechargeSvc))
	authed.GET("/points/recharge/:order_no", RechargeStatusHandler(rechargeSvc))

	v1.GET("/users/:id", PublicUserHandler(db)) // Public profile

	// Admin routes
	admin := authed.Group("/admin", middleware.AdminOnly())
	admin.GET("/users", ListUsersHandler(db, cache))
	admin.PUT("/users/:id", UpdateUserHandler(db, board, cache))
	admin.POST("/users/:id/grant-points", GrantPointsHandler(ledger, board, cache))
	admin.GET("/point-records", ListPointRecordsHandler(db))
	admin.POST("/recharge/:order_no/confirm", ConfirmRechargeHandler(rechargeSvc, board, cache))
	admin.GET("/stats", StatsHandler(db))

	return r
}
