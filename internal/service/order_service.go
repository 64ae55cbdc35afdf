package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/messaging"
	"github.com/davidngn/go-order-system/internal/metrics"
	"github.com/davidngn/go-order-system/internal/repository"
)

const (
	// maxTxAttempts bounds retries when a reservation or transition
	// loses a race.
	maxTxAttempts = 3

	TopicOrderCreated       = "orders.created"
	TopicOrderStatusChanged = "orders.status_changed"
)

// OrderService orchestrates order creation and status transitions.
type OrderService struct {
	orders    repository.OrderRepository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
}

func NewOrderService(
	orders repository.OrderRepository,
	publisher messaging.Publisher,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		metrics:   m,
	}
}

// Create validates the requested lines and creates the order together
// with its stock reservation in one transaction. Conflicts are retried
// a bounded number of times before surfacing.
func (s *OrderService) Create(ctx context.Context, lines []entity.OrderLine) (*entity.Order, error) {
	if len(lines) == 0 {
		return nil, &entity.ValidationError{Field: "items", Reason: "order must have at least one item"}
	}
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &entity.ValidationError{
				Field:  "quantity",
				Reason: fmt.Sprintf("quantity for product %d must be positive", line.ProductID),
			}
		}
		if seen[line.ProductID] {
			return nil, &entity.ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("product %d appears more than once", line.ProductID),
			}
		}
		seen[line.ProductID] = true
	}

	var order *entity.Order
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		order, err = s.orders.Create(ctx, lines)
		if err == nil {
			break
		}
		if !errors.Is(err, entity.ErrConflict) {
			if s.metrics != nil {
				s.metrics.OrdersRejected.WithLabelValues(rejectReason(err)).Inc()
			}
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.StockConflicts.Inc()
		}
		slog.Warn("Order creation lost a race, retrying", "attempt", attempt, "err", err)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	slog.Info("Order created", "order_id", order.ID, "items", len(order.Items), "total_price", order.TotalPrice)

	s.publish(ctx, TopicOrderCreated, order.ID, entity.OrderCreated{
		OrderID:    order.ID,
		Items:      order.Items,
		TotalPrice: order.TotalPrice,
		CreatedAt:  order.CreatedAt,
	})
	return order, nil
}

// Get returns a single order or entity.ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, id int64) (*entity.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// List returns all orders, newest first.
func (s *OrderService) List(ctx context.Context) ([]entity.Order, error) {
	return s.orders.FindAll(ctx)
}

// SetStatus parses the requested status, validates it against the
// lifecycle graph and persists the transition with a compare-and-set.
// A lost race is re-read and re-validated rather than overwritten.
func (s *OrderService) SetStatus(ctx context.Context, id int64, statusText string) (*entity.Order, error) {
	newStatus, err := entity.ParseOrderStatus(statusText)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		order, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if !entity.CanTransition(order.Status, newStatus) {
			return nil, &entity.IllegalTransitionError{From: order.Status, To: newStatus}
		}

		ok, err := s.orders.UpdateStatus(ctx, id, order.Status, newStatus)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Someone moved the order between the read and the write.
			slog.Warn("Status transition lost a race, re-reading", "order_id", id, "attempt", attempt)
			continue
		}

		oldStatus := order.Status
		order.Status = newStatus
		slog.Info("Order status changed", "order_id", id, "from", oldStatus, "to", newStatus)
		s.publish(ctx, TopicOrderStatusChanged, id, entity.OrderStatusChanged{
			OrderID:   id,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ChangedAt: time.Now().UTC(),
		})
		return order, nil
	}

	return nil, fmt.Errorf("%w: order %d kept changing during transition", entity.ErrConflict, id)
}

// PendingOrderIDs lists the orders the status worker should advance.
func (s *OrderService) PendingOrderIDs(ctx context.Context) ([]int64, error) {
	return s.orders.FindIDsByStatus(ctx, entity.StatusPending)
}

// AdvancePending moves one order from Pending to Processing. An order
// already moved by a concurrent request is a no-op, reported as
// advanced == false with no error.
func (s *OrderService) AdvancePending(ctx context.Context, id int64) (bool, error) {
	ok, err := s.orders.UpdateStatus(ctx, id, entity.StatusPending, entity.StatusProcessing)
	if err != nil || !ok {
		return false, err
	}

	s.publish(ctx, TopicOrderStatusChanged, id, entity.OrderStatusChanged{
		OrderID:   id,
		OldStatus: entity.StatusPending,
		NewStatus: entity.StatusProcessing,
		ChangedAt: time.Now().UTC(),
	})
	return true, nil
}

// publish sends an event after a committed mutation. Publish failures
// are logged, never propagated: the transaction already succeeded.
func (s *OrderService) publish(ctx context.Context, topic string, orderID int64, event entity.Event) {
	if err := s.publisher.PublishEvent(ctx, topic, strconv.FormatInt(orderID, 10), event); err != nil {
		slog.Error("Failed to publish event", "topic", topic, "order_id", orderID, "err", err)
	}
}

func rejectReason(err error) string {
	var insufficientErr *entity.InsufficientStockError
	var notFoundErr *entity.ProductNotFoundError
	switch {
	case errors.As(err, &insufficientErr):
		return "insufficient_stock"
	case errors.As(err, &notFoundErr):
		return "product_not_found"
	default:
		return "internal"
	}
}
