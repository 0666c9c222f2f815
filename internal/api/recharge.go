package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"aigc_platform/internal/leaderboard" // Ranking cache
	"aigc_platform/internal/middleware"  // Caller identity
	"aigc_platform/internal/recharge"    // Recharge orders
	"aigc_platform/internal/utils"       // Cache helper
)

// RechargeRequest opens a recharge order
type RechargeRequest struct {
	PackageID     int    `json:"package_id" binding:"required"`     // One of the listed packages
	PaymentMethod string `json:"payment_method" binding:"required"` // alipay or wechat
}

// ConfirmRechargeRequest settles a recharge order
type ConfirmRechargeRequest struct {
	TradeNo string `json:"trade_no" binding:"required,max=100"` // Gateway transaction id
}

// PackagesHandler lists the recharge packages on sale
func PackagesHandler(svc *recharge.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"packages": svc.Packages()})
	}
}

// CreateRechargeHandler opens a pending order for the caller
func CreateRechargeHandler(svc *recharge.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RechargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		order, err := svc.CreateOrder(c.Request.Context(), c.GetUint(middleware.UserIDKey), req.PackageID, req.PaymentMethod)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

// RechargeStatusHandler returns one of the caller's orders
func RechargeStatusHandler(svc *recharge.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.Order(c.Request.Context(), c.GetUint(middleware.UserIDKey), c.Param("order_no"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// ConfirmRechargeHandler settles an order and credits its points
func ConfirmRechargeHandler(svc *recharge.Service, board *leaderboard.Board, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRechargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		order, bal, err := svc.Confirm(c.Request.Context(), c.Param("order_no"), req.TradeNo)
		if err != nil {
			respondError(c, err)
			return
		}
		board.Invalidate(c.Request.Context())
		invalidateBalances(c.Request.Context(), cache, order.UserID)
		c.JSON(http.StatusOK, gin.H{"order": order, "balance": bal})
	}
}
