package service

import (
	"context"
	"time"

	"github.com/timmy/personashop/internal/domain"
)

// ProfileStore persists profiles and their profile-level recommendation cache.
type ProfileStore interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	SaveRecommendationCache(ctx context.Context, id string, productIDs []string, at time.Time) error
	InvalidateRecommendationCache(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ProductStore reads the active catalog.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	ListActive(ctx context.Context, category string, limit, offset int) ([]domain.Product, error)
	Search(ctx context.Context, q, category string, limit int) ([]domain.Product, error)
	UpdateAttributes(ctx context.Context, id string, attrs domain.Attributes) error
}

// RecommendationStore persists per-(profile, product) records.
type RecommendationStore interface {
	Get(ctx context.Context, profileID, productID string) (*domain.RecommendationRecord, error)
	Upsert(ctx context.Context, rec *domain.RecommendationRecord) error
}

// WishlistStore persists wishlist entries.
type WishlistStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, item *domain.WishlistItem) error
	Remove(ctx context.Context, userID, id string) error
	RemoveByProduct(ctx context.Context, userID, productID string) error
}
