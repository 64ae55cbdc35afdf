package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidngn/go-order-system/internal/entity"
)

// fakeProductRepo records the page arguments it receives.
type fakeProductRepo struct {
	mu       sync.Mutex
	nextID   int64
	created  []entity.Product
	page     int
	pageSize int
}

func (r *fakeProductRepo) Create(ctx context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.created = append(r.created, *p)
	return nil
}

func (r *fakeProductRepo) FindPage(ctx context.Context, page, pageSize int) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.page, r.pageSize = page, pageSize
	return nil, nil
}

func (r *fakeProductRepo) Seed(ctx context.Context, products []entity.Product) error {
	return nil
}

func TestCreateProduct(t *testing.T) {
	repo := &fakeProductRepo{}
	pub := &recordingPublisher{}
	svc := NewProductService(repo, pub)

	p, err := svc.Create(context.Background(), "Laptop", 1200, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, []string{"ProductCreated"}, pub.eventTypes())
}

func TestCreateProductValidation(t *testing.T) {
	repo := &fakeProductRepo{}
	svc := NewProductService(repo, &recordingPublisher{})

	tests := []struct {
		name  string
		pname string
		price float64
		stock int
	}{
		{"empty name", "", 10, 5},
		{"name too long", strings.Repeat("x", 101), 10, 5},
		{"zero price", "A", 0, 5},
		{"negative price", "A", -1, 5},
		{"price above cap", "A", 100001, 5},
		{"negative stock", "A", 10, -1},
		{"stock above cap", "A", 10, 10001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.pname, tt.price, tt.stock)
			var validationErr *entity.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Empty(t, repo.created)
}

func TestCreateProductBoundaryValues(t *testing.T) {
	svc := NewProductService(&fakeProductRepo{}, &recordingPublisher{})

	_, err := svc.Create(context.Background(), strings.Repeat("x", 100), 100000, 10000)
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), "A", 0.01, 0)
	assert.NoError(t, err)
}

func TestListProductsClampsPaging(t *testing.T) {
	repo := &fakeProductRepo{}
	svc := NewProductService(repo, &recordingPublisher{})

	_, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.page)
	assert.Equal(t, defaultPageSize, repo.pageSize)

	_, err = svc.List(context.Background(), 3, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.page)
	assert.Equal(t, maxPageSize, repo.pageSize)
}
