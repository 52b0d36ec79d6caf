package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/ratelimit"
	"github.com/stretchr/testify/assert"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func rateLimitedRouter(limiter ratelimit.Limiter, rule RateLimitRule, m *metrics.Metrics, setup gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/limited", setup, RateLimit(limiter, rule, m), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return router
}

func TestRateLimitByIP(t *testing.T) {
	m := metrics.New()
	router := rateLimitedRouter(ratelimit.NewMemoryLimiter(), RateLimitRule{
		Route: "callback", Limit: 3, Window: time.Minute, Key: ByIP,
	}, m, func(c *gin.Context) {})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	}
	w := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "Other IPs have their own quota")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("callback")))
}

func TestRateLimitByUser(t *testing.T) {
	router := rateLimitedRouter(ratelimit.NewMemoryLimiter(), RateLimitRule{
		Route: "cancel", Limit: 1, Window: time.Minute, Key: ByUser,
	}, metrics.New(), func(c *gin.Context) {
		id := uint(1)
		if c.GetHeader("X-User") == "2" {
			id = 2
		}
		c.Set(ContextCurrentUser, &models.User{ID: id})
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1"))
	assert.Equal(t, http.StatusOK, send("2"), "Quota is per user, not per IP")
}

func TestRateLimitFailsOpen(t *testing.T) {
	router := rateLimitedRouter(failingLimiter{}, RateLimitRule{
		Route: "callback", Limit: 1, Window: time.Minute, Key: ByIP,
	}, metrics.New(), func(c *gin.Context) {})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/limited", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestByUserFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:1234"

	assert.Equal(t, "ip:192.0.2.7", ByUser(c))
	c.Set(ContextUserID, "auth0|abc")
	assert.Equal(t, "sub:auth0|abc", ByUser(c))
	c.Set(ContextCurrentUser, &models.User{ID: 9})
	assert.Equal(t, "user:9", ByUser(c))
}
