package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/personashop/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository handles catalog data operations. Every read is scoped
// to active products.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ProductRepository: repository instance bound to db.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - product: product record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID retrieves an active product by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: product ID.
// Returns:
//   - *domain.Product: product record if found.
//   - error: domain.ErrNotFound if missing or inactive.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// GetByIDs retrieves active products by a list of IDs. Missing or inactive
// ids are silently absent from the result; order is unspecified.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of product IDs.
// Returns:
//   - []domain.Product: matching product records.
//   - error: non-nil if the query fails.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	var products []domain.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products by IDs: %w", err)
	}
	return products, nil
}

// ListActive retrieves active products in storage order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: product category to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Product: matching product records.
//   - error: non-nil if the query fails.
func (r *ProductRepository) ListActive(ctx context.Context, category string, limit, offset int) ([]domain.Product, error) {
	var products []domain.Product
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("product_category = ?", category)
	}
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search finds active products whose name or brand contains q, ignoring case.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - q: search text.
//   - category: optional category filter; empty means all.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Product: matching product records.
//   - error: non-nil if the query fails.
func (r *ProductRepository) Search(ctx context.Context, q, category string, limit int) ([]domain.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\'`, pattern, pattern)
	if category != "" {
		query = query.Where("product_category = ?", category)
	}
	var products []domain.Product
	if err := query.Order("name ASC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateAttributes writes the attribute bag of a product back to storage.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: product ID.
//   - attrs: full attribute bag to store.
// Returns:
//   - error: non-nil if the update fails.
func (r *ProductRepository) UpdateAttributes(ctx context.Context, id string, attrs domain.Attributes) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("attributes", attrs).Error
}
