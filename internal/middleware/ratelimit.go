package middleware

import (
	"net/http" // HTTP status codes
	"sync"     // Guards the limiter map

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
	"golang.org/x/time/rate"     // Token buckets
)

// KeyedLimiter hands out one token bucket per key.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter allows rps requests per second per key with the given burst.
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.limiter(key).Allow()
}

func (k *KeyedLimiter) limiter(key string) *rate.Limiter {
	k.mu.RLock()
	l, ok := k.limiters[key]
	k.mu.RUnlock()
	if ok {
		return l
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok = k.limiters[key]; ok {
		return l
	}
	l = rate.NewLimiter(k.limit, k.burst)
	k.limiters[key] = l
	return l
}

// RateLimitMiddleware rejects callers that exceed their per-IP budget with 429.
// A nil limiter disables limiting.
func RateLimitMiddleware(limiter *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logrus.WithFields(logrus.Fields{"ip": ip, "path": c.FullPath()}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
