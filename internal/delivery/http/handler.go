package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/davidngn/go-order-system/internal/cache"
	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/metrics"
	"github.com/davidngn/go-order-system/internal/ratelimit"
	"github.com/davidngn/go-order-system/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	orderSvc   *service.OrderService
	productSvc *service.ProductService
	pageCache  *cache.Cache
	limiter    *ratelimit.FixedWindow
	metrics    *metrics.Metrics
}

func NewHandler(
	orderSvc *service.OrderService,
	productSvc *service.ProductService,
	pageCache *cache.Cache,
	limiter *ratelimit.FixedWindow,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		orderSvc:   orderSvc,
		productSvc: productSvc,
		pageCache:  pageCache,
		limiter:    limiter,
		metrics:    m,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/products", h.instrument("list_products", http.HandlerFunc(h.handleListProducts)))
	mux.Handle("POST /api/products", h.instrument("create_product", http.HandlerFunc(h.handleCreateProduct)))
	mux.Handle("GET /api/orders", h.instrument("list_orders", http.HandlerFunc(h.handleListOrders)))
	mux.Handle("GET /api/orders/{id}", h.instrument("get_order", http.HandlerFunc(h.handleGetOrder)))
	mux.Handle("POST /api/orders", h.instrument("create_order", h.limiter.Middleware(http.HandlerFunc(h.handleCreateOrder))))
	mux.Handle("PUT /api/orders/{id}/status", h.instrument("set_order_status", http.HandlerFunc(h.handleSetOrderStatus)))
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

func (h *Handler) instrument(name string, next http.Handler) http.Handler {
	if h.metrics == nil {
		return next
	}
	return h.metrics.Instrument(name, next)
}

// --- Read DTOs ---

type OrderItemRead struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type OrderRead struct {
	ID         int64           `json:"id"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	TotalPrice float64         `json:"total_price"`
	Items      []OrderItemRead `json:"items"`
}

func toOrderRead(o *entity.Order) OrderRead {
	read := OrderRead{
		ID:         o.ID,
		Status:     o.Status.String(),
		CreatedAt:  o.CreatedAt,
		TotalPrice: o.ComputeTotal(),
		Items:      make([]OrderItemRead, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		read.Items = append(read.Items, OrderItemRead{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return read
}

// --- Orders ---

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	reads := make([]OrderRead, 0, len(orders))
	for i := range orders {
		reads = append(reads, toOrderRead(&orders[i]))
	}
	writeJSON(w, http.StatusOK, reads)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.orderSvc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderRead(order))
}

type CreateOrderRequest struct {
	Items []entity.OrderLine `json:"items"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orderSvc.Create(r.Context(), req.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderRead(order))
}

type UpdateOrderStatusRequest struct {
	NewStatus string `json:"new_status"`
}

func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orderSvc.SetStatus(r.Context(), id, req.NewStatus)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderRead(order))
}

// --- Products ---

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if page < 1 {
		page = 1
	}

	cacheKey := fmt.Sprintf("products_page_%d_size_%d", page, pageSize)
	var cached []entity.Product
	if h.pageCache.Get(r.Context(), cacheKey, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	products, err := h.productSvc.List(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if products == nil {
		products = []entity.Product{}
	}

	h.pageCache.Set(r.Context(), cacheKey, products)
	writeJSON(w, http.StatusOK, products)
}

type CreateProductRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.productSvc.Create(r.Context(), req.Name, req.Price, req.Stock)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeError maps domain error kinds to HTTP responses. Anything
// unrecognized is logged in full and reported as a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError
	var productErr *entity.ProductNotFoundError
	var stockErr *entity.InsufficientStockError
	var transitionErr *entity.IllegalTransitionError

	switch {
	case errors.Is(err, entity.ErrOrderNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entity.ErrInvalidStatus):
		http.Error(w, "invalid order status", http.StatusBadRequest)
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &productErr):
		http.Error(w, productErr.Error(), http.StatusBadRequest)
	case errors.As(err, &stockErr):
		http.Error(w, stockErr.Error(), http.StatusConflict)
	case errors.As(err, &transitionErr):
		http.Error(w, transitionErr.Error(), http.StatusConflict)
	case errors.Is(err, entity.ErrConflict):
		http.Error(w, "conflicting concurrent update, please retry", http.StatusConflict)
	default:
		slog.Error("Internal error", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// EnableCORS is a middleware to allow a browser frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
