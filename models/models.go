package models

// AllModels lists every model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&StockAlert{},
	}
}
