package services

import (
	"github.com/satis-shop/satis-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusRecorder appends order status history rows.
// Recording runs in a savepoint of the caller's transaction and never fails the caller.
type StatusRecorder struct {
	logger *zap.Logger
}

// NewStatusRecorder creates a status recorder
func NewStatusRecorder(logger *zap.Logger) *StatusRecorder {
	return &StatusRecorder{logger: logger}
}

// Record writes one history row for orderID if from differs from to.
// A nil from marks the order's creation. actor may be nil for provider callbacks.
// It reports whether a row was written.
func (r *StatusRecorder) Record(tx *gorm.DB, orderID uint, from *string, to string, actor *models.User, note string) bool {
	if from != nil && *from == to {
		return false
	}

	entry := models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if actor != nil {
		entry.ChangedByID = &actor.ID
	}

	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&entry).Error
	})
	if err != nil {
		r.logger.Error("failed to record order status history",
			zap.Uint("order_id", orderID),
			zap.String("to_status", to),
			zap.Error(err),
		)
		return false
	}
	return true
}

func statusPtr(s string) *string {
	return &s
}
