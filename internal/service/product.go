package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/logger"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 100
	maxSearchResults    = 20
	minSearchQueryLen   = 2
)

// ProductService serves the active catalog.
type ProductService struct {
	products  ProductStore
	completer Completer
}

// NewProductService creates a product service.
func NewProductService(products ProductStore, completer Completer) *ProductService {
	return &ProductService{products: products, completer: completer}
}

// List returns active products, optionally restricted to one category.
// limit 0 means the default page size.
func (s *ProductService) List(ctx context.Context, category string, skip, limit int) ([]domain.Product, error) {
	if limit == 0 {
		limit = defaultProductLimit
	}
	if limit < 1 || limit > maxProductLimit {
		return nil, invalidf("limit must be between 1 and %d", maxProductLimit)
	}
	if skip < 0 {
		return nil, invalidf("skip must not be negative")
	}
	products, err := s.products.ListActive(ctx, category, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Get returns one active product.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return product, nil
}

// Search matches the query against product name and brand.
func (s *ProductService) Search(ctx context.Context, q, category string) ([]domain.Product, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchQueryLen {
		return nil, invalidf("query must be at least %d characters", minSearchQueryLen)
	}
	products, err := s.products.Search(ctx, q, category, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// KeyFeatures returns the product's two highlights, computing and storing
// them on first use.
func (s *ProductService) KeyFeatures(ctx context.Context, id string) ([2]string, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return [2]string{}, err
	}
	// A failed write only costs a recompute on the next request.
	features, _, _ := s.EnsureKeyFeatures(ctx, product)
	return features, nil
}

// EnsureKeyFeatures computes key features for product unless two are
// already stored. computed reports whether a completion call was made.
// A failed write is returned alongside the computed features.
func (s *ProductService) EnsureKeyFeatures(ctx context.Context, product *domain.Product) (features [2]string, computed bool, err error) {
	if cached, ok := product.Attributes.KeyFeatures(); ok {
		return cached, false, nil
	}

	features = s.completer.KeyFeatures(ctx, product)

	attrs := product.Attributes
	if attrs == nil {
		attrs = domain.Attributes{}
	}
	attrs.SetKeyFeatures(features)
	if err := s.products.UpdateAttributes(ctx, product.ID, attrs); err != nil {
		logger.CtxWarn(ctx, "Failed to store key features: product_id=%s, error=%v", product.ID, err)
		return features, true, fmt.Errorf("failed to store key features: %w", err)
	}
	product.Attributes = attrs
	return features, true, nil
}
