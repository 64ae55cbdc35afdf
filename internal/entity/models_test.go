package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderItemLineTotal(t *testing.T) {
	item := OrderItem{ProductID: 1, Price: 5, Quantity: 2}
	assert.InDelta(t, 10.0, item.LineTotal(), 1e-9)
}

func TestOrderComputeTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{ProductID: 1, Price: 5, Quantity: 2},
			{ProductID: 2, Price: 3, Quantity: 3},
		},
	}
	assert.InDelta(t, 19.0, order.ComputeTotal(), 1e-9)
}

func TestOrderComputeTotalEmpty(t *testing.T) {
	var order Order
	assert.Zero(t, order.ComputeTotal())
}

func TestProductNotFoundErrorUnwraps(t *testing.T) {
	err := &ProductNotFoundError{ProductID: 42}
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Contains(t, err.Error(), "42")
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductID: 7, Name: "Laptop"}
	assert.Contains(t, err.Error(), "Laptop")
}
