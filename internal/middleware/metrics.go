package middleware

import (
	"strconv" // Status code labels
	"time"    // Latency measurement

	"github.com/gin-gonic/gin" // Gin web framework

	"aigc_platform/internal/metrics" // Prometheus collectors
)

// MetricsMiddleware observes request latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
