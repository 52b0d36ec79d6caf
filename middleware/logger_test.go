package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New()

	router := gin.New()
	router.Use(RequestLogger(zap.New(core), m))
	router.GET("/api/v1/orders/:id", func(c *gin.Context) {
		Logger(c).Info("handler")
		c.String(http.StatusOK, "ok")
	})

	t.Run("generates a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/7", nil))

		assert.Len(t, w.Header().Get(HeaderRequestID), 36)
	})

	t.Run("echoes an incoming request id", func(t *testing.T) {
		logs.TakeAll()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/8", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "handler", entries[0].Message)
		assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"], "Handlers log with the request id")
		assert.Equal(t, "request", entries[1].Message)
		assert.Equal(t, "/api/v1/orders/:id", entries[1].ContextMap()["route"])
		assert.Equal(t, int64(200), entries[1].ContextMap()["status"])
	})

	t.Run("unmatched routes warn", func(t *testing.T) {
		logs.TakeAll()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zap.WarnLevel, entries[0].Level)
		assert.Equal(t, "unmatched", entries[0].ContextMap()["route"])
	})

	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPDuration), "One series per method/route/status")
}

func TestLoggerOutsideMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, Logger(c))
}
