package service

import (
	"context"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/messaging"
	"github.com/davidngn/go-order-system/internal/repository"
)

const (
	maxProductNameLen = 100
	maxProductPrice   = 100000
	maxProductStock   = 10000

	defaultPageSize = 10
	maxPageSize     = 100

	TopicProductCreated = "products.created"
)

// ProductService handles product registration and listing.
type ProductService struct {
	products  repository.ProductRepository
	publisher messaging.Publisher
}

func NewProductService(products repository.ProductRepository, publisher messaging.Publisher) *ProductService {
	return &ProductService{products: products, publisher: publisher}
}

// Create validates and persists a new product.
func (s *ProductService) Create(ctx context.Context, name string, price float64, stock int) (*entity.Product, error) {
	if name == "" {
		return nil, &entity.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > maxProductNameLen {
		return nil, &entity.ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	if price <= 0 || price > maxProductPrice {
		return nil, &entity.ValidationError{Field: "price", Reason: "must be in (0, 100000]"}
	}
	if stock < 0 || stock > maxProductStock {
		return nil, &entity.ValidationError{Field: "stock", Reason: "must be in [0, 10000]"}
	}

	p := &entity.Product{Name: name, Price: price, Stock: stock}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("Product created", "product_id", p.ID, "name", p.Name)
	if err := s.publisher.PublishEvent(ctx, TopicProductCreated, strconv.FormatInt(p.ID, 10), entity.ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
	}); err != nil {
		slog.Error("Failed to publish ProductCreated", "product_id", p.ID, "err", err)
	}
	return p, nil
}

// List returns one page of products. Page defaults to 1, pageSize to
// 10, capped at 100.
func (s *ProductService) List(ctx context.Context, page, pageSize int) ([]entity.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.products.FindPage(ctx, page, pageSize)
}
