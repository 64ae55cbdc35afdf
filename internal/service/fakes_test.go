package service

import (
	"context"
	"sync"
	"time"

	"github.com/davidngn/go-order-system/internal/entity"
)

// memStore is an in-memory stand-in for the Postgres repositories. Its
// Create mirrors the transactional semantics of the real one: all-or-
// nothing reservation under a single lock.
type memStore struct {
	mu          sync.Mutex
	products    map[int64]*entity.Product
	orders      map[int64]*entity.Order
	nextProduct int64
	nextOrder   int64

	// readHook, when set, runs once inside the next FindByID with the
	// lock held. Tests use it to interleave a concurrent writer
	// between a service's read and its compare-and-set.
	readHook func()
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*entity.Product),
		orders:   make(map[int64]*entity.Order),
	}
}

func (s *memStore) addProduct(name string, price float64, stock int) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProduct++
	p := &entity.Product{ID: s.nextProduct, Name: name, Price: price, Stock: stock}
	s.products[p.ID] = p
	return p
}

func (s *memStore) stockOf(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) Create(ctx context.Context, lines []entity.OrderLine) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		if _, ok := s.products[line.ProductID]; !ok {
			return nil, &entity.ProductNotFoundError{ProductID: line.ProductID}
		}
	}
	for _, line := range lines {
		p := s.products[line.ProductID]
		if p.Stock < line.Quantity {
			return nil, &entity.InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}
	}

	order := &entity.Order{
		Status:    entity.StatusPending,
		CreatedAt: time.Now(),
	}
	for _, line := range lines {
		p := s.products[line.ProductID]
		p.Stock -= line.Quantity
		order.Items = append(order.Items, entity.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
	}
	order.TotalPrice = order.ComputeTotal()

	s.nextOrder++
	order.ID = s.nextOrder
	s.orders[order.ID] = order

	copied := *order
	copied.Items = append([]entity.OrderItem(nil), order.Items...)
	return &copied, nil
}

func (s *memStore) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	copied := *order
	copied.Items = append([]entity.OrderItem(nil), order.Items...)

	if s.readHook != nil {
		hook := s.readHook
		s.readHook = nil
		hook()
	}
	return &copied, nil
}

func (s *memStore) FindAll(ctx context.Context) ([]entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.Order
	for _, order := range s.orders {
		copied := *order
		copied.Items = append([]entity.OrderItem(nil), order.Items...)
		out = append(out, copied)
	}
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id int64, from, to entity.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (s *memStore) FindIDsByStatus(ctx context.Context, status entity.OrderStatus) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, order := range s.orders {
		if order.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Event
	topics []string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic string, key string, event entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// conflictingStore wraps memStore, failing the first n Create calls
// with ErrConflict.
type conflictingStore struct {
	*memStore
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (s *conflictingStore) Create(ctx context.Context, lines []entity.OrderLine) (*entity.Order, error) {
	s.mu.Lock()
	s.calls++
	fail := s.conflicts > 0
	if fail {
		s.conflicts--
	}
	s.mu.Unlock()

	if fail {
		return nil, entity.ErrConflict
	}
	return s.memStore.Create(ctx, lines)
}
