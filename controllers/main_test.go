package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/payments"
	"github.com/satis-shop/satis-api/services"
	"github.com/satis-shop/satis-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "" && env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current %q)\n", env)
		os.Exit(1)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:             "test",
		PaymentProvider:   payments.ProviderMock,
		PaymentCurrency:   "TRY",
		PaymentSuccessURL: "/shop/checkout/success/",
		PaymentFailureURL: "/shop/checkout/fail/",
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

// env wires the package-level singletons the handlers read to a fresh database
type env struct {
	db      *gorm.DB
	cfg     *config.Config
	svc     *services.OrderService
	mailer  *services.MockMailer
	archive *services.MockCallbackArchive
	metrics *metrics.Metrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testConfig()
	config.SetConfig(cfg)
	config.SetDB(db)
	payments.SetRegistry(payments.NewRegistry(cfg))

	m := metrics.New()
	metrics.Set(m)

	mailer := services.NewMockMailer()
	archive := services.NewMockCallbackArchive()
	rates := services.ShippingRates{
		Standard:      decimal.RequireFromString("49.90"),
		Express:       decimal.RequireFromString("99.90"),
		FreeThreshold: decimal.RequireFromString("500"),
	}
	svc := services.NewOrderService(db, zap.NewNop(), m, services.NewNotificationService(mailer), archive, rates)
	services.SetOrderService(svc)

	return &env{db: db, cfg: cfg, svc: svc, mailer: mailer, archive: archive, metrics: m}
}

// order creates a received order for owner and clears the mailer
func (e *env) order(t *testing.T, owner *models.User, lines ...services.OrderLine) *models.Order {
	t.Helper()
	o, err := e.svc.CreateOrder(context.Background(), owner, services.CheckoutInput{
		Email:    "musteri@example.com",
		FullName: "Ayşe Yılmaz",
		Address:  "Bağdat Cad. 1",
		City:     "İstanbul",
		Items:    lines,
	})
	require.NoError(t, err)
	e.mailer.Reset()
	return o
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formPost(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
