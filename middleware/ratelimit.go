package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/ratelimit"
	"go.uber.org/zap"
)

// KeyFunc returns the quota key for a request
type KeyFunc func(c *gin.Context) string

// ByIP keys requests by client IP
func ByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByUser keys requests by the current user, falling back to the token
// subject and then the client IP
func ByUser(c *gin.Context) string {
	if user, err := CurrentUser(c); err == nil {
		return "user:" + strconv.FormatUint(uint64(user.ID), 10)
	}
	if sub, err := GetUserID(c); err == nil {
		return "sub:" + sub
	}
	return ByIP(c)
}

// RateLimitRule describes one route's quota
type RateLimitRule struct {
	Route  string // label used in keys and metrics
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

// RateLimit rejects requests over the rule's quota with 429.
// Limiter errors are logged and the request is let through.
func RateLimit(limiter ratelimit.Limiter, rule RateLimitRule, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.Route + ":" + rule.Key(c)
		allowed, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			Logger(c).Warn("rate limiter unavailable, allowing request",
				zap.String("route", rule.Route),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			if m != nil {
				m.RateLimited.WithLabelValues(rule.Route).Inc()
			}
			Logger(c).Info("rate limit exceeded",
				zap.String("route", rule.Route),
				zap.String("key", key),
			)
			c.Header("Retry-After", strconv.Itoa(int(rule.Window.Seconds())))
			abortJSON(c, http.StatusTooManyRequests, "RATE_LIMITED", "Çok fazla istek. Lütfen biraz sonra tekrar deneyin.")
			return
		}

		c.Next()
	}
}
