package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/ratelimit"
	"portfolio-backend/internal/shared/server/respond"
)

const defaultLimitMessage = "Too many requests from this IP, please try again later."

// RateLimitConfig configures RateLimit. A nil or zero-limit Window
// disables limiting.
type RateLimitConfig struct {
	Window  *ratelimit.Window
	Name    string
	Message string
	Skip    func(*gin.Context) bool
}

// RateLimit counts requests per client IP against cfg.Window and answers
// 429 once the allowance is spent. Every counted response carries
// RateLimit-Limit and RateLimit-Remaining.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Name == "" {
		cfg.Name = "api"
	}
	if cfg.Message == "" {
		cfg.Message = defaultLimitMessage
	}
	return func(c *gin.Context) {
		if cfg.Window == nil || cfg.Window.Limit() <= 0 || (cfg.Skip != nil && cfg.Skip(c)) {
			c.Next()
			return
		}
		key := cfg.Name + "|" + strings.TrimSpace(c.ClientIP())
		allowed, retryAfter := cfg.Window.Allow(key)
		c.Header("RateLimit-Limit", strconv.Itoa(cfg.Window.Limit()))
		c.Header("RateLimit-Remaining", strconv.Itoa(cfg.Window.Remaining(key)))
		if !allowed {
			metrics.IncRateLimited(cfg.Name)
			c.Header("Retry-After", RetryAfterSeconds(retryAfter))
			respond.Error(c, http.StatusTooManyRequests, cfg.Message, nil)
			return
		}
		c.Next()
	}
}

// RetryAfterSeconds formats a wait as whole seconds, rounded up, minimum 1.
func RetryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}
