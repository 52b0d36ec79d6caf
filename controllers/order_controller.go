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
	"github.com/satis-shop/satis-api/utils"
	"go.uber.org/zap"
)

// CreateOrder handles POST /api/v1/orders - creates a received order from the checkout form
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Geçersiz sipariş bilgileri.",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), user, req)
	if err != nil {
		var verr *utils.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    verr.Code,
					"message": verr.Message,
					"field":   verr.Field,
				},
			})
		case errors.Is(err, services.ErrEmptyOrder):
			errorJSON(c, http.StatusBadRequest, "EMPTY_ORDER", "Sepetiniz boş.")
		case errors.Is(err, services.ErrInvalidQuantity):
			errorJSON(c, http.StatusBadRequest, "INVALID_QUANTITY", "Ürün adedi en az 1 olmalıdır.")
		case errors.Is(err, services.ErrProductNotFound):
			errorJSON(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND", "Sepetteki bir ürün bulunamadı.")
		default:
			middleware.Logger(c).Error("failed to create order", zap.Error(err))
			errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Sipariş oluşturulamadı.")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"order_number": order.Number(),
		"data":         order,
	})
}

// GetOrder handles GET /api/v1/orders/:id - owner or staff
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz sipariş numarası.")
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), orderID, user)
	if err != nil {
		writeOrderError(c, err, "Bu siparişi görüntüleme yetkiniz yok.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"order_number": order.Number(),
		"data":         order,
	})
}

// PayOrder handles POST /api/v1/orders/:id/pay - starts payment with the configured provider.
// Redirect providers answer with an auto-submitting HTML form.
func PayOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz sipariş numarası.")
		return
	}

	cfg := config.GetConfig()
	provider := payments.GetRegistry().Active()
	res, outcome, err := services.GetOrderService().StartPayment(c.Request.Context(), provider, orderID, user, cfg.PaymentCurrency, c.Request)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			errorJSON(c, http.StatusConflict, "INVALID_STATUS", "Bu sipariş için ödeme başlatılamaz.")
			return
		}
		writeOrderError(c, err, "Bu siparişin ödemesini yapma yetkiniz yok.")
		return
	}

	if !res.Success {
		errorJSON(c, http.StatusBadRequest, "PAYMENT_INIT_FAILED", res.Message)
		return
	}
	if res.RequiresRedirect {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.FormHTML))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": res.Message,
		"data": gin.H{
			"order_id":     orderID,
			"provider":     provider.Name(),
			"provider_ref": res.ProviderRef,
			"outcome":      outcome.String(),
		},
	})
}

// CancelOrder handles POST /orders/:id/cancel/ - owner or staff, received orders only
func CancelOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz sipariş numarası.")
		return
	}

	m := metrics.Get()
	outcome, _, err := services.GetOrderService().CancelOrder(c.Request.Context(), orderID, user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			m.Cancellations.WithLabelValues("forbidden").Inc()
		case errors.Is(err, services.ErrInvalidTransition):
			m.Cancellations.WithLabelValues("conflict").Inc()
		case errors.Is(err, services.ErrOrderNotFound):
			m.Cancellations.WithLabelValues("not_found").Inc()
		default:
			m.Cancellations.WithLabelValues("error").Inc()
		}
		if errors.Is(err, services.ErrInvalidTransition) {
			errorJSON(c, http.StatusConflict, "INVALID_STATUS", "Yalnızca alınan durumundaki siparişler iptal edilebilir.")
			return
		}
		writeOrderError(c, err, "Bu siparişi iptal etme yetkiniz yok.")
		return
	}

	m.Cancellations.WithLabelValues(outcome.String()).Inc()
	c.String(http.StatusOK, "OK")
}

// ShipOrder handles POST /api/v1/orders/:id/ship - staff only, paid orders only
func ShipOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz sipariş numarası.")
		return
	}

	outcome, order, err := services.GetOrderService().MarkShipped(c.Request.Context(), orderID, user)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			errorJSON(c, http.StatusConflict, "INVALID_STATUS", "Yalnızca ödenmiş siparişler kargoya verilebilir.")
			return
		}
		writeOrderError(c, err, "Bu işlem için yetkiniz yok.")
		return
	}

	message := "Sipariş kargoya verildi."
	if outcome == services.AlreadyShipped {
		message = "Sipariş zaten kargoya verilmiş."
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    gin.H{"order_id": order.ID, "status": order.Status},
	})
}

// writeOrderError maps not-found and forbidden errors; anything else is a 500
func writeOrderError(c *gin.Context, err error, forbiddenMessage string) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		errorJSON(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Sipariş bulunamadı.")
	case errors.Is(err, services.ErrForbidden):
		errorJSON(c, http.StatusForbidden, "FORBIDDEN", forbiddenMessage)
	default:
		middleware.Logger(c).Error("order request failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "İşlem tamamlanamadı.")
	}
}
