package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	StatusReceived  = "received"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusCancelled = "cancelled"
)

// Shipping methods
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

// Invoice types
const (
	InvoiceIndividual = "bireysel"
	InvoiceCorporate  = "kurumsal"
)

// Order is a checkout snapshot: contact, shipping, invoice and payment state
type Order struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID *uint `gorm:"index" json:"user_id"` // nullable, guest checkout
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`

	Email      string `gorm:"not null" json:"email"`
	FullName   string `gorm:"size:120;not null" json:"fullname"`
	Phone      string `gorm:"size:30" json:"phone"`
	Address    string `gorm:"type:text" json:"address"`
	City       string `gorm:"size:60" json:"city"`
	District   string `gorm:"size:60" json:"district"`
	PostalCode string `gorm:"size:20" json:"postal_code"`

	ShippingMethod string          `gorm:"size:20;not null;default:'standard'" json:"shipping_method"`
	ShippingFee    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"shipping_fee"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`

	Status          string     `gorm:"size:16;not null;default:'received';index" json:"status"` // received, paid, shipped, cancelled
	PaymentProvider string     `gorm:"size:20;not null;default:''" json:"payment_provider"`
	PaymentRef      *string    `gorm:"size:128;uniqueIndex" json:"payment_ref"` // nullable, provider transaction id
	PaidAt          *time.Time `json:"paid_at"`

	InvoiceType     string `gorm:"size:10;not null;default:'bireysel'" json:"invoice_type"`
	BillingFullName string `gorm:"size:255" json:"billing_fullname"`
	TaxOffice       string `gorm:"size:128" json:"tax_office"`
	TCKN            string `gorm:"column:tckn;size:11" json:"tckn"`
	VKN             string `gorm:"column:vkn;size:10" json:"vkn"`
	EArchiveEmail   string `gorm:"size:254" json:"e_archive_email"`
	BillingAddress  string `gorm:"size:500" json:"billing_address"`
	BillingCity     string `gorm:"size:64" json:"billing_city"`
	BillingDistrict string `gorm:"size:64" json:"billing_district"`
	BillingPostcode string `gorm:"size:10" json:"billing_postcode"`
	KVKKApproved    bool   `gorm:"column:kvkk_approved;not null;default:false" json:"kvkk_approved"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Number is the customer-facing order number, e.g. ORD2026101442
func (o Order) Number() string {
	return fmt.Sprintf("ORD%s%d", o.CreatedAt.Format("20060102"), o.ID)
}

// IsOwnedBy reports whether the order belongs to the given user
func (o Order) IsOwnedBy(u *User) bool {
	return u != nil && o.UserID != nil && *o.UserID == u.ID
}

// OrderItem is an immutable order line referencing a product
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
