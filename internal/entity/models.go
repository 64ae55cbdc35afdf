package entity

import (
	"time"
)

// Product represents a product in the store. Stock is mutated only by
// the reservation logic in the order repository, never assigned
// directly.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// OrderItem is a line item within an order. Name and Price are the
// snapshot taken at order creation; later product changes do not
// affect them.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal returns the snapshot price times the quantity.
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Order represents a customer order.
type Order struct {
	ID         int64       `json:"id"`
	Items      []OrderItem `json:"items"`
	TotalPrice float64     `json:"total_price"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ComputeTotal sums the line totals of the order's items. Totals always
// come from the snapshot prices stored with the items, never from live
// product rows.
func (o *Order) ComputeTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

// OrderLine is a requested line in a create-order call, before the
// referenced product has been resolved.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
