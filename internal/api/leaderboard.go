package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"github.com/gin-gonic/gin" // Gin web framework

	"aigc_platform/internal/leaderboard" // Rankings
)

const defaultLeaderboardLimit = 10

// LeaderboardHandler returns the top users by points
func LeaderboardHandler(board *leaderboard.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLeaderboardLimit
		if l := c.Query("limit"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
				return
			}
			limit = v
		}
		entries, err := board.Top(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
	}
}
