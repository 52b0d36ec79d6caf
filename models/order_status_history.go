package models

import (
	"fmt"
	"time"
)

// OrderStatusHistory is an append-only record of one observed status transition
type OrderStatusHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index:idx_order_status_history_order_created,priority:1" json:"order_id"`
	FromStatus  *string   `gorm:"size:32" json:"from_status"` // nil on creation
	ToStatus    string    `gorm:"size:32;not null" json:"to_status"`
	ChangedByID *uint     `gorm:"index" json:"changed_by_id"` // nil for provider callbacks and automation
	ChangedBy   *User     `gorm:"foreignKey:ChangedByID;constraint:OnDelete:SET NULL" json:"-"`
	Note        string    `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt   time.Time `gorm:"index:idx_order_status_history_order_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for the OrderStatusHistory model
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

func (h OrderStatusHistory) String() string {
	from := "—"
	if h.FromStatus != nil {
		from = *h.FromStatus
	}
	return fmt.Sprintf("#%d: %s → %s", h.OrderID, from, h.ToStatus)
}
