package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidngn/go-order-system/internal/metrics"
)

// OrderAdvancer is the slice of the order service the worker needs.
type OrderAdvancer interface {
	PendingOrderIDs(ctx context.Context) ([]int64, error)
	AdvancePending(ctx context.Context, id int64) (bool, error)
}

// StatusWorker periodically advances Pending orders to Processing. It
// is the only long-lived background actor sharing the store with
// request handlers.
type StatusWorker struct {
	orders   OrderAdvancer
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(orders OrderAdvancer, interval time.Duration, m *metrics.Metrics) *StatusWorker {
	return &StatusWorker{orders: orders, interval: interval, metrics: m}
}

// Run loops until the context is cancelled. Cancellation is observed
// between cycles, never inside a transition.
func (w *StatusWorker) Run(ctx context.Context) error {
	slog.Info("Order status worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Order status worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle scans Pending orders and advances each in its own
// transaction. Per-order failures are logged and skipped so one bad
// order cannot block the rest; the next tick retries whatever is still
// Pending.
func (w *StatusWorker) RunCycle(ctx context.Context) {
	ids, err := w.orders.PendingOrderIDs(ctx)
	if err != nil {
		slog.Error("Worker failed to list pending orders", "err", err)
		return
	}

	for _, id := range ids {
		advanced, err := w.orders.AdvancePending(ctx, id)
		if err != nil {
			slog.Error("Worker failed to advance order", "order_id", id, "err", err)
			if w.metrics != nil {
				w.metrics.WorkerFailures.Inc()
			}
			continue
		}
		if !advanced {
			// Already moved out of Pending by a concurrent request.
			continue
		}

		slog.Info("Processing Order", "order_id", id)
		if w.metrics != nil {
			w.metrics.WorkerTransitions.Inc()
		}
	}
}
