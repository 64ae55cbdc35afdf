package repository

import (
	"context"

	"github.com/davidngn/go-order-system/internal/entity"
)

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	// Create persists a new product and assigns its ID.
	Create(ctx context.Context, p *entity.Product) error
	FindPage(ctx context.Context, page, pageSize int) ([]entity.Product, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository handles persistence for Orders and their items, and
// owns the stock reservation that runs inside order creation.
type OrderRepository interface {
	// Create resolves the referenced products, reserves stock for every
	// line and persists the order with snapshot prices, all in a single
	// transaction. On any failure nothing is mutated.
	Create(ctx context.Context, lines []entity.OrderLine) (*entity.Order, error)
	FindByID(ctx context.Context, id int64) (*entity.Order, error)
	FindAll(ctx context.Context) ([]entity.Order, error)
	// UpdateStatus moves an order from one status to another with a
	// compare-and-set. It reports false when the order was no longer in
	// the expected status, which callers treat as a lost race, not an
	// error.
	UpdateStatus(ctx context.Context, id int64, from, to entity.OrderStatus) (bool, error)
	FindIDsByStatus(ctx context.Context, status entity.OrderStatus) ([]int64, error)
}
