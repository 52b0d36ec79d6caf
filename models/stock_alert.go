package models

import "time"

// Stock alert statuses
const (
	AlertActive    = "active"
	AlertNotified  = "notified"
	AlertCancelled = "cancelled"
)

// StockAlert asks for an email once a product's stock reaches Threshold
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_stock_alert_user_product" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ProductID  uint       `gorm:"not null;uniqueIndex:idx_stock_alert_user_product;index" json:"product_id"`
	Product    Product    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product"`
	Email      string     `gorm:"not null" json:"email"`
	Threshold  int        `gorm:"not null;default:1" json:"threshold"`
	Status     string     `gorm:"size:15;not null;default:'active'" json:"status"` // active, notified, cancelled
	NotifiedAt *time.Time `json:"notified_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for the StockAlert model
func (StockAlert) TableName() string {
	return "stock_alerts"
}
