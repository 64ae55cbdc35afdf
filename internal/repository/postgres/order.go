package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, lines []entity.OrderLine) (*entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	// Lock the referenced product rows in a stable order so two orders
	// touching the same products cannot deadlock each other.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows, err := tx.QueryContext(ctx,
		"SELECT id, name, price, stock FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE",
		pq.Array(ids),
	)
	if err != nil {
		return nil, mapConflict(fmt.Errorf("failed to lock products: %w", err))
	}

	products := make(map[int64]*entity.Product, len(ids))
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapConflict(fmt.Errorf("error iterating products: %w", err))
	}
	rows.Close()

	// Every referenced product must exist before anything is mutated.
	for _, line := range lines {
		if _, ok := products[line.ProductID]; !ok {
			return nil, &entity.ProductNotFoundError{ProductID: line.ProductID}
		}
	}

	// Reserve stock for all lines. The rows are locked, so the check
	// against the quantity just read cannot go stale; the conditional
	// UPDATE plus RowsAffected guards the invariant regardless.
	for _, line := range lines {
		p := products[line.ProductID]
		if p.Stock < line.Quantity {
			return nil, &entity.InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
			line.Quantity, line.ProductID,
		)
		if err != nil {
			return nil, mapConflict(fmt.Errorf("failed to update product stock: %w", err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: stock changed under lock for product %d", entity.ErrConflict, p.ID)
		}
	}

	order := &entity.Order{
		Status: entity.StatusPending,
		Items:  make([]entity.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		p := products[line.ProductID]
		order.Items = append(order.Items, entity.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
	}
	order.TotalPrice = order.ComputeTotal()

	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (status, total_price) VALUES ($1, $2) RETURNING id, created_at",
		order.Status, order.TotalPrice,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, mapConflict(fmt.Errorf("failed to insert order: %w", err))
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5)",
			order.ID, item.ProductID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	var o entity.Order
	err := r.db.QueryRowContext(ctx,
		"SELECT id, status, total_price, created_at FROM orders WHERE id = $1",
		id,
	).Scan(&o.ID, &o.Status, &o.TotalPrice, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, status, total_price, created_at FROM orders ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY id",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to entity.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return false, mapConflict(fmt.Errorf("failed to update order status: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *orderRepository) FindIDsByStatus(ctx context.Context, status entity.OrderStatus) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM orders WHERE status = $1 ORDER BY id", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by status: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
