package repository

import (
	"context"

	"github.com/timmy/personashop/internal/domain"
	"gorm.io/gorm"
)

// WishlistRepository handles wishlist data operations.
type WishlistRepository struct {
	db *gorm.DB
}

// NewWishlistRepository creates a new WishlistRepository.
func NewWishlistRepository(db *gorm.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// ListByUser returns a user's wishlist, newest first.
func (r *WishlistRepository) ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Add inserts a wishlist entry, returning domain.ErrDuplicate when the user already
// saved the product.
func (r *WishlistRepository) Add(ctx context.Context, item *domain.WishlistItem) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrDuplicate
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Remove deletes one of the user's entries by id.
func (r *WishlistRepository) Remove(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.WishlistItem{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RemoveByProduct deletes the user's entry for a product.
func (r *WishlistRepository) RemoveByProduct(ctx context.Context, userID, productID string) error {
	res := r.db.WithContext(ctx).Delete(&domain.WishlistItem{}, "product_id = ? AND user_id = ?", productID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
