package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderTableNames(t *testing.T) {
	assert.Equal(t, "orders", Order{}.TableName())
	assert.Equal(t, "order_items", OrderItem{}.TableName())
	assert.Equal(t, "order_status_history", OrderStatusHistory{}.TableName())
	assert.Equal(t, "products", Product{}.TableName())
	assert.Equal(t, "stock_alerts", StockAlert{}.TableName())
}

func TestOrderNumber(t *testing.T) {
	order := Order{
		ID:        42,
		CreatedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "ORD2026101442", order.Number())
}

func TestOrderIsOwnedBy(t *testing.T) {
	ownerID := uint(7)
	order := Order{UserID: &ownerID}

	assert.True(t, order.IsOwnedBy(&User{ID: 7}))
	assert.False(t, order.IsOwnedBy(&User{ID: 8}))
	assert.False(t, order.IsOwnedBy(nil))

	guest := Order{}
	assert.False(t, guest.IsOwnedBy(&User{ID: 7}), "Guest orders have no owner")
}

func TestOrderStatusHistoryString(t *testing.T) {
	received := StatusReceived
	assert.Equal(t, "#3: — → received", OrderStatusHistory{OrderID: 3, ToStatus: StatusReceived}.String())
	assert.Equal(t, "#3: received → paid", OrderStatusHistory{OrderID: 3, FromStatus: &received, ToStatus: StatusPaid}.String())
}

func TestProductInStock(t *testing.T) {
	assert.True(t, Product{Stock: 1}.InStock())
	assert.False(t, Product{Stock: 0}.InStock())
}
