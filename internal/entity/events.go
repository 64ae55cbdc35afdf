package entity

import "time"

// Event is a domain event published to downstream consumers.
type Event interface {
	EventType() string
}

// OrderCreated is emitted after an order and its stock reservation
// have been committed.
type OrderCreated struct {
	OrderID    int64       `json:"order_id"`
	Items      []OrderItem `json:"items"`
	TotalPrice float64     `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (e OrderCreated) EventType() string { return "OrderCreated" }

// OrderStatusChanged is emitted after a status transition has been
// committed, whether it came from a request or the background worker.
type OrderStatusChanged struct {
	OrderID   int64       `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// ProductCreated is emitted when a product is registered.
type ProductCreated struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Stock     int     `json:"stock"`
}

func (e ProductCreated) EventType() string { return "ProductCreated" }
