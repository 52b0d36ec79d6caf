package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/middleware"
	"github.com/satis-shop/satis-api/services"
	"go.uber.org/zap"
)

// StockAlertRequest is the optional body of a stock alert subscription
type StockAlertRequest struct {
	Email     string `json:"email" binding:"omitempty,email"`
	Threshold int    `json:"threshold" binding:"omitempty,min=1"`
}

// SubscribeStockAlert handles POST /api/v1/products/:id/stock-alert
func SubscribeStockAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz ürün numarası.")
		return
	}

	var req StockAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Geçersiz istek verisi.",
					"details": err.Error(),
				},
			})
			return
		}
	}

	alert, err := services.GetOrderService().Alerts().Subscribe(c.Request.Context(), user, productID, req.Email, req.Threshold)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			errorJSON(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Ürün bulunamadı.")
		case errors.Is(err, services.ErrAlertExists):
			errorJSON(c, http.StatusConflict, "ALERT_EXISTS", "Bu ürün için zaten aktif bir stok uyarınız var.")
		default:
			middleware.Logger(c).Error("failed to subscribe stock alert", zap.Error(err))
			errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Stok uyarısı oluşturulamadı.")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Ürün stoğa girdiğinde size haber vereceğiz.",
		"data":     alert,
		"in_stock": alert.Product.InStock(),
	})
}

// UnsubscribeStockAlert handles DELETE /api/v1/products/:id/stock-alert
func UnsubscribeStockAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := idParam(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "Geçersiz ürün numarası.")
		return
	}

	if err := services.GetOrderService().Alerts().Unsubscribe(c.Request.Context(), user, productID); err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			errorJSON(c, http.StatusNotFound, "ALERT_NOT_FOUND", "Aktif stok uyarısı bulunamadı.")
			return
		}
		middleware.Logger(c).Error("failed to cancel stock alert", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Stok uyarısı iptal edilemedi.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stok uyarısı iptal edildi.",
	})
}

// ListMyStockAlerts handles GET /api/v1/users/me/stock-alerts
func ListMyStockAlerts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	alerts, err := services.GetOrderService().Alerts().ListForUser(c.Request.Context(), user)
	if err != nil {
		middleware.Logger(c).Error("failed to list stock alerts", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Stok uyarıları alınamadı.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    alerts,
		"count":   len(alerts),
	})
}
