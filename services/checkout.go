package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrEmptyOrder is returned when a checkout has no lines
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity is returned for non-positive line quantities
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// OrderLine is one requested product and quantity
type OrderLine struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// InvoiceDetails is the optional billing snapshot of a checkout
type InvoiceDetails struct {
	Type            string `json:"invoice_type"`
	BillingFullName string `json:"billing_fullname"`
	TaxOffice       string `json:"tax_office"`
	TCKN            string `json:"tckn"`
	VKN             string `json:"vkn"`
	EArchiveEmail   string `json:"e_archive_email"`
	BillingAddress  string `json:"billing_address"`
	BillingCity     string `json:"billing_city"`
	BillingDistrict string `json:"billing_district"`
	BillingPostcode string `json:"billing_postcode"`
	KVKKApproved    bool   `json:"kvkk_approved"`
}

// CheckoutInput is everything needed to create an order
type CheckoutInput struct {
	Email          string          `json:"email" binding:"required,email"`
	FullName       string          `json:"fullname" binding:"required"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address" binding:"required"`
	City           string          `json:"city" binding:"required"`
	District       string          `json:"district"`
	PostalCode     string          `json:"postal_code"`
	ShippingMethod string          `json:"shipping_method"`
	Items          []OrderLine     `json:"items" binding:"required"`
	Invoice        *InvoiceDetails `json:"invoice"`
}

// CreateOrder creates a received order for user, snapshotting product prices.
// Stock is reserved only when the payment settles.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, in CheckoutInput) (*models.Order, error) {
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	method := strings.ToLower(strings.TrimSpace(in.ShippingMethod))
	if method != models.ShippingExpress {
		method = models.ShippingStandard
	}

	order := models.Order{
		Email:          strings.TrimSpace(in.Email),
		FullName:       strings.TrimSpace(in.FullName),
		Phone:          in.Phone,
		Address:        in.Address,
		City:           in.City,
		District:       in.District,
		PostalCode:     in.PostalCode,
		ShippingMethod: method,
		Status:         models.StatusReceived,
		InvoiceType:    models.InvoiceIndividual,
	}
	if user != nil {
		order.UserID = &user.ID
	}
	if in.Invoice != nil {
		if err := applyInvoice(&order, in.Invoice); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		subtotal := decimal.Zero
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", ErrProductNotFound, l.ProductID)
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			order.Items = append(order.Items, models.OrderItem{
				ProductID: p.ID,
				Quantity:  l.Quantity,
				UnitPrice: p.Price,
				LineTotal: lineTotal,
			})
		}
		order.ShippingFee = s.shipping.Fee(subtotal, method)
		order.Total = subtotal.Add(order.ShippingFee)

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		s.recorder.Record(tx, order.ID, nil, models.StatusReceived, user, "")
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.effects.Run(ctx, created, SideEffect{Name: "status_email", Run: s.notifier.SendOrderStatus})
	return created, nil
}

// mergeLines validates quantities and folds repeated products into one line, keeping first-seen order
func mergeLines(in []OrderLine) ([]OrderLine, error) {
	if len(in) == 0 {
		return nil, ErrEmptyOrder
	}
	index := make(map[uint]int, len(in))
	out := make([]OrderLine, 0, len(in))
	for _, l := range in {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func applyInvoice(order *models.Order, inv *InvoiceDetails) error {
	invoiceType := strings.ToLower(strings.TrimSpace(inv.Type))
	if invoiceType == "" {
		invoiceType = models.InvoiceIndividual
	}
	if err := utils.ValidateInvoice(utils.InvoiceFields{
		Type:         invoiceType,
		TCKN:         inv.TCKN,
		VKN:          inv.VKN,
		TaxOffice:    inv.TaxOffice,
		KVKKApproved: inv.KVKKApproved,
	}); err != nil {
		return err
	}

	order.InvoiceType = invoiceType
	order.BillingFullName = inv.BillingFullName
	order.EArchiveEmail = inv.EArchiveEmail
	order.BillingAddress = inv.BillingAddress
	order.BillingCity = inv.BillingCity
	order.BillingDistrict = inv.BillingDistrict
	order.BillingPostcode = inv.BillingPostcode
	order.KVKKApproved = inv.KVKKApproved
	if invoiceType == models.InvoiceCorporate {
		order.VKN = inv.VKN
		order.TaxOffice = inv.TaxOffice
	} else {
		order.TCKN = inv.TCKN
	}
	return nil
}
