package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/payments"
	"github.com/satis-shop/satis-api/ratelimit"
	"github.com/satis-shop/satis-api/services"
	"github.com/satis-shop/satis-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const headerTestUser = "X-Test-User"

// headerAuth stands in for the JWT middleware: the token subject comes from a header
func headerAuth(c *gin.Context) {
	sub := c.GetHeader(headerTestUser)
	if sub == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "INVALID_TOKEN", "message": "Oturum doğrulanamadı."},
		})
		return
	}
	testutil.SetMockAuthContext(c, sub, "", "token-"+sub, nil)
	c.Next()
}

func testAppConfig() *config.Config {
	return &config.Config{
		GoEnv:             "test",
		PaymentProvider:   payments.ProviderMock,
		PaymentCurrency:   "TRY",
		PaymentSuccessURL: "/shop/checkout/success/",
		PaymentFailureURL: "/shop/checkout/fail/",
		CallbackRateLimit: 10,
		CancelRateLimit:   5,
		Iyzico: config.IyzicoConfig{
			APIKey:      "iyz-key",
			Secret:      "iyz-secret",
			BaseURL:     "https://sandbox-api.iyzipay.com",
			CallbackURL: "/payments/callback/iyzico/",
		},
		PayTR: config.PayTRConfig{
			MerchantID:   "123456",
			MerchantKey:  "paytr-key",
			MerchantSalt: "paytr-salt",
			BaseURL:      "https://www.paytr.com",
			CallbackURL:  "/payments/callback/paytr/",
		},
	}
}

// setupTestApp wires a fresh in-memory database and returns the full router
func setupTestApp(t *testing.T, cfg *config.Config) (*gin.Engine, *services.MockMailer, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	config.SetDB(db)
	config.SetConfig(cfg)
	payments.SetRegistry(payments.NewRegistry(cfg))

	m := metrics.New()
	metrics.Set(m)

	mailer := services.NewMockMailer()
	archive := services.NewMockCallbackArchive()
	services.SetOrderService(services.NewOrderService(db, zap.NewNop(), m, services.NewNotificationService(mailer), archive, services.ShippingRates{
		Standard:      decimal.RequireFromString("49.90"),
		Express:       decimal.RequireFromString("99.90"),
		FreeThreshold: decimal.RequireFromString("500"),
	}))

	router := setupRouter(routerDeps{
		cfg:     cfg,
		logger:  zap.NewNop(),
		metrics: m,
		limiter: ratelimit.NewMemoryLimiter(),
		auth:    headerAuth,
	})
	return router, mailer, m
}

// setupRouterForHealth builds the full router over an empty database
func setupRouterForHealth(t *testing.T) *gin.Engine {
	t.Helper()
	router, _, _ := setupTestApp(t, testAppConfig())
	return router
}

// TestHealthEndpointIntegration tests the /api/v1/health endpoint with full routing
func TestHealthEndpointIntegration(t *testing.T) {
	router := setupRouterForHealth(t)

	req, _ := http.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Expected status 200 OK")

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Satış API is running", response["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

// TestHealthEndpointMethod tests that only GET method is allowed
func TestHealthEndpointMethod(t *testing.T) {
	router := setupRouterForHealth(t)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req, _ := http.NewRequest(method, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s should not be allowed", method)
	}
}

func TestDatabaseStatusEndpoint(t *testing.T) {
	router := setupRouterForHealth(t)

	req, _ := http.NewRequest("GET", "/api/v1/database/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := testutil.DecodeJSON(t, w)
	tables := response["tables"].([]interface{})
	assert.Contains(t, tables, "orders")
	assert.Contains(t, tables, "order_status_history")
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouterForHealth(t)

	// One request first so the duration histogram has a series
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "satis_http_request_duration_seconds")
}

// TestProtectedRoutesRequireAuth checks that order routes reject requests without a token
func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := setupRouterForHealth(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/orders/1/cancel/"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/1"},
		{http.MethodPost, "/api/v1/orders/1/pay"},
		{http.MethodPost, "/api/v1/orders/1/ship"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPost, "/api/v1/products/1/stock-alert"},
	}
	for _, r := range routes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)
	}
}

// TestTokenWithoutProfile checks that a valid token whose subject has no stored user is rejected
func TestTokenWithoutProfile(t *testing.T) {
	router := setupRouterForHealth(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil)
	req.Header.Set(headerTestUser, "auth0|stranger")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", testutil.ErrorCode(t, w))
}
