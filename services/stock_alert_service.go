package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satis-shop/satis-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound is returned when a stock alert references an unknown product
	ErrProductNotFound = errors.New("product not found")
	// ErrAlertExists is returned when the user already has an active alert for the product
	ErrAlertExists = errors.New("active stock alert already exists")
	// ErrAlertNotFound is returned when there is no active alert to cancel
	ErrAlertNotFound = errors.New("active stock alert not found")
)

// StockAlertService manages back-in-stock subscriptions
type StockAlertService struct {
	db       *gorm.DB
	notifier *NotificationService
	logger   *zap.Logger
	now      func() time.Time
}

// NewStockAlertService creates a stock alert service
func NewStockAlertService(db *gorm.DB, notifier *NotificationService, logger *zap.Logger) *StockAlertService {
	return &StockAlertService{db: db, notifier: notifier, logger: logger, now: time.Now}
}

// Subscribe creates an active alert for user on productID, reactivating a
// previously notified or cancelled one. email defaults to the user's address.
func (s *StockAlertService) Subscribe(ctx context.Context, user *models.User, productID uint, email string, threshold int) (*models.StockAlert, error) {
	if threshold < 1 {
		threshold = 1
	}
	if email == "" {
		email = user.Email
	}

	var alert models.StockAlert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		err := tx.Where("user_id = ? AND product_id = ?", user.ID, productID).First(&alert).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			alert = models.StockAlert{
				UserID:    user.ID,
				ProductID: productID,
				Email:     email,
				Threshold: threshold,
				Status:    models.AlertActive,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case alert.Status == models.AlertActive:
			return ErrAlertExists
		default:
			if err := tx.Model(&alert).Updates(map[string]interface{}{
				"email":       email,
				"threshold":   threshold,
				"status":      models.AlertActive,
				"notified_at": nil,
			}).Error; err != nil {
				return err
			}
			alert.Email, alert.Threshold, alert.Status, alert.NotifiedAt = email, threshold, models.AlertActive, nil
		}
		alert.Product = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// Unsubscribe cancels the user's active alert on productID
func (s *StockAlertService) Unsubscribe(ctx context.Context, user *models.User, productID uint) error {
	res := s.db.WithContext(ctx).Model(&models.StockAlert{}).
		Where("user_id = ? AND product_id = ? AND status = ?", user.ID, productID, models.AlertActive).
		Update("status", models.AlertCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListForUser returns the user's alerts, newest first
func (s *StockAlertService) ListForUser(ctx context.Context, user *models.User) ([]models.StockAlert, error) {
	var alerts []models.StockAlert
	err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&alerts).Error
	return alerts, err
}

// NotifyRestocked emails every active alert on productIDs whose product stock
// reached its threshold and marks it notified. It returns the number of emails sent.
// An alert whose email fails stays active.
func (s *StockAlertService) NotifyRestocked(ctx context.Context, productIDs ...uint) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	var alerts []models.StockAlert
	err := s.db.WithContext(ctx).
		Joins("Product").
		Where("stock_alerts.status = ? AND stock_alerts.product_id IN ?", models.AlertActive, productIDs).
		Where(`"Product"."stock" >= stock_alerts.threshold`).
		Find(&alerts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load stock alerts: %w", err)
	}

	sent := 0
	for i := range alerts {
		alert := &alerts[i]
		if err := s.notifier.SendStockAlert(ctx, alert); err != nil {
			s.logger.Warn("stock alert email failed",
				zap.Uint("alert_id", alert.ID),
				zap.Uint("product_id", alert.ProductID),
				zap.Error(err),
			)
			continue
		}

		now := s.now()
		if err := s.db.WithContext(ctx).Model(alert).Updates(map[string]interface{}{
			"status":      models.AlertNotified,
			"notified_at": now,
		}).Error; err != nil {
			return sent, fmt.Errorf("failed to mark stock alert %d notified: %w", alert.ID, err)
		}
		sent++
	}
	return sent, nil
}
