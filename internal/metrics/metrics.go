package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the order system.
type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated     prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	StockConflicts    prometheus.Counter
	WorkerTransitions prometheus.Counter
	WorkerFailures    prometheus.Counter
}

// New registers and returns the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ordersys",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "orders_created_total",
			Help:      "Orders successfully created.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "orders_rejected_total",
			Help:      "Order creations rejected, by reason.",
		}, []string{"reason"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "stock_conflicts_total",
			Help:      "Stock reservations that lost a race and were retried.",
		}),
		WorkerTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "worker_transitions_total",
			Help:      "Orders advanced by the status worker.",
		}),
		WorkerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersys",
			Name:      "worker_failures_total",
			Help:      "Per-order failures during worker cycles.",
		}),
	}

	reg.MustRegister(
		m.Requests, m.LatencyMS,
		m.OrdersCreated, m.OrdersRejected, m.StockConflicts,
		m.WorkerTransitions, m.WorkerFailures,
	)
	return m
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps a handler with request counting and latency
// observation.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	})
}
