package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/payments"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound is returned when the referenced order does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrForbidden is returned when the actor may not act on the order
	ErrForbidden = errors.New("not allowed to modify this order")
	// ErrInvalidTransition is returned when the order's status does not allow the change
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// SettlementOutcome describes what a verified payment did to an order
type SettlementOutcome int

const (
	Settled SettlementOutcome = iota + 1
	AlreadySettled
)

func (o SettlementOutcome) String() string {
	switch o {
	case Settled:
		return "settled"
	case AlreadySettled:
		return "already_settled"
	default:
		return "unknown"
	}
}

// CancelOutcome describes what a cancellation request did to an order
type CancelOutcome int

const (
	Cancelled CancelOutcome = iota + 1
	AlreadyCancelled
)

func (o CancelOutcome) String() string {
	switch o {
	case Cancelled:
		return "cancelled"
	case AlreadyCancelled:
		return "already_cancelled"
	default:
		return "unknown"
	}
}

// ShipOutcome describes what a ship request did to an order
type ShipOutcome int

const (
	Shipped ShipOutcome = iota + 1
	AlreadyShipped
)

// Settlement is a verified payment to apply to an order
type Settlement struct {
	Provider    string
	OrderRef    string
	ProviderRef string
	Payload     map[string]string // raw callback fields, archived after commit; nil skips archiving
}

// OrderService owns every order status transition. Each transition locks the
// order row, re-reads it, branches on the current status and commits before
// any side effect runs.
type OrderService struct {
	db       *gorm.DB
	logger   *zap.Logger
	metrics  *metrics.Metrics
	recorder *StatusRecorder
	effects  *SideEffectRunner
	notifier *NotificationService
	alerts   *StockAlertService
	archive  CallbackArchive
	shipping ShippingRates
	now      func() time.Time
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service. archive may be nil to disable callback archiving.
func NewOrderService(db *gorm.DB, logger *zap.Logger, m *metrics.Metrics, notifier *NotificationService, archive CallbackArchive, rates ShippingRates) *OrderService {
	return &OrderService{
		db:       db,
		logger:   logger,
		metrics:  m,
		recorder: NewStatusRecorder(logger),
		effects:  NewSideEffectRunner(logger, m),
		notifier: notifier,
		alerts:   NewStockAlertService(db, notifier, logger),
		archive:  archive,
		shipping: rates,
		now:      time.Now,
	}
}

// InitOrderService initializes the global order service
func InitOrderService(db *gorm.DB, logger *zap.Logger, m *metrics.Metrics, notifier *NotificationService, archive CallbackArchive, rates ShippingRates) *OrderService {
	orderServiceInstance = NewOrderService(db, logger, m, notifier, archive, rates)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

// Alerts returns the stock alert service sharing this service's database and notifier
func (s *OrderService) Alerts() *StockAlertService {
	return s.alerts
}

// Recorder returns the status recorder used for every transition
func (s *OrderService) Recorder() *StatusRecorder {
	return s.recorder
}

// ParseOrderRef converts a provider order reference into an order id
func ParseOrderRef(ref string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ref), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid order reference %q", ErrOrderNotFound, ref)
	}
	return uint(id), nil
}

// SettlePayment marks the referenced order paid and decrements stock once per
// distinct payment. Repeated deliveries, or any delivery for an order that is
// already paid, return AlreadySettled without touching the order.
func (s *OrderService) SettlePayment(ctx context.Context, in Settlement) (SettlementOutcome, *models.Order, error) {
	orderID, err := ParseOrderRef(in.OrderRef)
	if err != nil {
		return 0, nil, err
	}

	var outcome SettlementOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}

		if order.Status == models.StatusPaid || (order.PaymentRef != nil && *order.PaymentRef == in.ProviderRef) {
			outcome = AlreadySettled
			return nil
		}
		if order.Status != models.StatusReceived {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, order.ID, order.Status)
		}

		var ref *string
		if in.ProviderRef != "" {
			ref = &in.ProviderRef
		}
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":           models.StatusPaid,
			"payment_provider": in.Provider,
			"payment_ref":      ref,
			"paid_at":          s.now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
		}

		if err := s.decrementStock(tx, order.ID); err != nil {
			return err
		}

		s.recorder.Record(tx, order.ID, statusPtr(models.StatusReceived), models.StatusPaid, nil, "provider="+in.Provider)
		outcome = Settled
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return outcome, nil, err
	}

	var effects []SideEffect
	if outcome == Settled {
		effects = append(effects,
			SideEffect{Name: "confirmation_email", Run: s.notifier.SendOrderConfirmation},
			SideEffect{Name: "status_email", Run: s.notifier.SendOrderStatus},
		)
	}
	if s.archive != nil && in.Payload != nil {
		effects = append(effects, s.archiveEffect(in, outcome))
	}
	s.effects.Run(ctx, order, effects...)

	return outcome, order, nil
}

func (s *OrderService) archiveEffect(in Settlement, outcome SettlementOutcome) SideEffect {
	return SideEffect{
		Name: "callback_archive",
		Run: func(ctx context.Context, order *models.Order) error {
			_, err := s.archive.Store(ctx, CallbackRecord{
				Provider:    in.Provider,
				OrderID:     order.ID,
				ProviderRef: in.ProviderRef,
				Outcome:     outcome.String(),
				Payload:     in.Payload,
				ReceivedAt:  s.now(),
			})
			return err
		},
	}
}

// CancelOrder moves a received order to cancelled and restores its stock.
// Only the owner or staff may cancel. An already cancelled order is a no-op.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, actor *models.User) (CancelOutcome, *models.Order, error) {
	if err := s.authorize(ctx, orderID, actor); err != nil {
		return 0, nil, err
	}

	var outcome CancelOutcome
	var restocked []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}

		if order.Status == models.StatusCancelled {
			outcome = AlreadyCancelled
			return nil
		}
		if order.Status != models.StatusReceived {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, order.ID, order.Status)
		}

		items, err := s.lockItems(tx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to restore stock for product %d: %w", item.ProductID, err)
			}
			restocked = append(restocked, item.ProductID)
		}

		if err := tx.Model(&order).Update("status", models.StatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel order %d: %w", order.ID, err)
		}

		s.recorder.Record(tx, order.ID, statusPtr(models.StatusReceived), models.StatusCancelled, actor, "")
		outcome = Cancelled
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return outcome, nil, err
	}

	if outcome == Cancelled {
		s.effects.Run(ctx, order,
			SideEffect{Name: "status_email", Run: s.notifier.SendOrderStatus},
			SideEffect{Name: "stock_alerts", Run: func(ctx context.Context, _ *models.Order) error {
				_, err := s.alerts.NotifyRestocked(ctx, restocked...)
				return err
			}},
		)
	}
	return outcome, order, nil
}

// MarkShipped moves a paid order to shipped. Only staff may ship.
func (s *OrderService) MarkShipped(ctx context.Context, orderID uint, actor *models.User) (ShipOutcome, *models.Order, error) {
	if !actor.IsStaff() {
		return 0, nil, ErrForbidden
	}

	var outcome ShipOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}

		switch order.Status {
		case models.StatusShipped:
			outcome = AlreadyShipped
			return nil
		case models.StatusPaid:
		default:
			return fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, order.ID, order.Status)
		}

		if err := tx.Model(&order).Update("status", models.StatusShipped).Error; err != nil {
			return fmt.Errorf("failed to ship order %d: %w", order.ID, err)
		}
		s.recorder.Record(tx, order.ID, statusPtr(models.StatusPaid), models.StatusShipped, actor, "")
		outcome = Shipped
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return outcome, nil, err
	}
	if outcome == Shipped {
		s.effects.Run(ctx, order, SideEffect{Name: "status_email", Run: s.notifier.SendOrderStatus})
	}
	return outcome, order, nil
}

// StartPayment asks provider to initiate payment for a received order owned by actor.
// Providers that succeed without a redirect are settled immediately.
func (s *OrderService) StartPayment(ctx context.Context, provider payments.Provider, orderID uint, actor *models.User, currency string, r *http.Request) (*payments.ChargeResult, SettlementOutcome, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrOrderNotFound
		}
		return nil, 0, err
	}
	if !order.IsOwnedBy(actor) {
		return nil, 0, ErrForbidden
	}
	if order.Status != models.StatusReceived {
		return nil, 0, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, order.ID, order.Status)
	}

	res, err := provider.Initiate(ctx, &order, order.Total, currency, r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to initiate %s payment: %w", provider.Name(), err)
	}
	if !res.Success || res.RequiresRedirect {
		return res, 0, nil
	}

	outcome, _, err := s.SettlePayment(ctx, Settlement{
		Provider:    provider.Name(),
		OrderRef:    strconv.FormatUint(uint64(order.ID), 10),
		ProviderRef: res.ProviderRef,
	})
	if err != nil {
		return res, 0, err
	}
	return res, outcome, nil
}

// GetOrder returns the order with items and history (newest first) if actor is the owner or staff
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, actor *models.User) (*models.Order, error) {
	if err := s.authorize(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

func (s *OrderService) authorize(ctx context.Context, orderID uint, actor *models.User) error {
	if actor == nil {
		return ErrForbidden
	}
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !actor.IsStaff() && !order.IsOwnedBy(actor) {
		return ErrForbidden
	}
	return nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_status_history.created_at DESC").Order("order_status_history.id DESC")
		}).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// lockOrder reads the order with an exclusive row lock
func lockOrder(tx *gorm.DB, orderID uint, order *models.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	return nil
}

// lockItems loads the order's items and locks their products in ascending id
// order, so concurrent transitions on orders sharing products cannot deadlock.
func (s *OrderService) lockItems(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Order("product_id").Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items of order %d: %w", orderID, err)
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var products []models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to lock products of order %d: %w", orderID, err)
	}

	stock := make(map[uint]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}
	for i := range items {
		items[i].Product = models.Product{ID: items[i].ProductID, Stock: stock[items[i].ProductID]}
	}
	return items, nil
}

// decrementStock subtracts each item's quantity from its product, clamping at zero
func (s *OrderService) decrementStock(tx *gorm.DB, orderID uint) error {
	items, err := s.lockItems(tx, orderID)
	if err != nil {
		return err
	}

	remaining := make(map[uint]int, len(items))
	for _, item := range items {
		remaining[item.ProductID] = item.Product.Stock
	}

	for _, item := range items {
		available := remaining[item.ProductID]
		if available < item.Quantity {
			s.metrics.StockUnderflows.Inc()
			s.logger.Warn("stock underflow on settlement, clamping at zero",
				zap.Uint("order_id", orderID),
				zap.Uint("product_id", item.ProductID),
				zap.Int("stock", available),
				zap.Int("quantity", item.Quantity),
			)
			remaining[item.ProductID] = 0
		} else {
			remaining[item.ProductID] = available - item.Quantity
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
			Update("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", item.Quantity, item.Quantity)).Error; err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

// ShippingRates are the flat shipping fees and the free-shipping threshold
type ShippingRates struct {
	Standard      decimal.Decimal
	Express       decimal.Decimal
	FreeThreshold decimal.Decimal
}

// Fee returns the shipping fee for subtotal; unknown methods cost the standard rate.
// A zero threshold disables free shipping.
func (r ShippingRates) Fee(subtotal decimal.Decimal, method string) decimal.Decimal {
	if r.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(r.FreeThreshold) {
		return decimal.Zero
	}
	if method == models.ShippingExpress {
		return r.Express
	}
	return r.Standard
}
