package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/middleware"
	"github.com/satis-shop/satis-api/payments"
	"github.com/satis-shop/satis-api/services"
	"go.uber.org/zap"
)

// callbackSignals are the provider-specific responses to a webhook
type callbackSignals struct {
	failure func(c *gin.Context)
	noop    func(c *gin.Context)
	success func(c *gin.Context)
}

func iyzicoSignals() callbackSignals {
	cfg := config.GetConfig()
	return callbackSignals{
		failure: func(c *gin.Context) { c.Redirect(http.StatusFound, cfg.PaymentFailureURL) },
		noop:    func(c *gin.Context) { c.String(http.StatusOK, "ok") },
		success: func(c *gin.Context) { c.Redirect(http.StatusFound, cfg.PaymentSuccessURL) },
	}
}

func paytrSignals() callbackSignals {
	ok := func(c *gin.Context) { c.String(http.StatusOK, "OK") }
	return callbackSignals{
		failure: func(c *gin.Context) { c.String(http.StatusOK, "FAIL") },
		noop:    ok,
		success: ok,
	}
}

// IyzicoCallback handles POST /payments/callback/iyzico/
func IyzicoCallback(c *gin.Context) {
	handleCallback(c, payments.ProviderIyzico, iyzicoSignals())
}

// PayTRCallback handles POST /payments/callback/paytr/
func PayTRCallback(c *gin.Context) {
	handleCallback(c, payments.ProviderPayTR, paytrSignals())
}

func handleCallback(c *gin.Context, providerName string, signals callbackSignals) {
	logger := middleware.Logger(c).With(zap.String("provider", providerName))
	m := metrics.Get()

	provider := payments.GetRegistry().Get(providerName)
	result := provider.VerifyCallback(c.Request)
	if !result.OK {
		logger.Warn("payment callback rejected",
			zap.String("order_ref", result.OrderRef),
			zap.String("reason", result.Message),
		)
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeRejected).Inc()
		signals.failure(c)
		return
	}

	payload := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		payload[key] = c.Request.PostForm.Get(key)
	}

	outcome, order, err := services.GetOrderService().SettlePayment(c.Request.Context(), services.Settlement{
		Provider:    provider.Name(),
		OrderRef:    result.OrderRef,
		ProviderRef: result.ProviderRef,
		Payload:     payload,
	})
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		logger.Warn("payment callback for unknown order", zap.String("order_ref", result.OrderRef))
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeOrderNotFound).Inc()
		signals.failure(c)
	case errors.Is(err, services.ErrInvalidTransition):
		logger.Error("verified payment for an order that cannot be paid",
			zap.String("order_ref", result.OrderRef),
			zap.String("provider_ref", result.ProviderRef),
			zap.Error(err),
		)
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeRejected).Inc()
		signals.failure(c)
	case err != nil:
		logger.Error("payment settlement failed", zap.String("order_ref", result.OrderRef), zap.Error(err))
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeError).Inc()
		c.String(http.StatusInternalServerError, "ERROR")
	case outcome == services.AlreadySettled:
		logger.Info("duplicate payment callback ignored", zap.Uint("order_id", order.ID))
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeAlreadySettled).Inc()
		signals.noop(c)
	default:
		logger.Info("order paid", zap.Uint("order_id", order.ID), zap.String("provider_ref", result.ProviderRef))
		m.Callbacks.WithLabelValues(providerName, metrics.OutcomeSettled).Inc()
		signals.success(c)
	}
}
