package repository

import (
	"context"
	"time"

	"github.com/timmy/personashop/internal/domain"
	"gorm.io/gorm"
)

// ProfileRepository handles profile data operations, including the
// profile-level recommendation cache columns.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ProfileRepository: repository instance bound to db.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profile: profile record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID retrieves a profile by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: profile ID.
// Returns:
//   - *domain.Profile: profile record if found.
//   - error: domain.ErrNotFound if the profile does not exist.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// ListByUser retrieves every profile owned by a user, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner ID.
// Returns:
//   - []domain.Profile: owned profiles.
//   - error: non-nil if the query fails.
func (r *ProfileRepository) ListByUser(ctx context.Context, userID string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update saves the descriptive fields of a profile. Cache columns are
// left alone; use SaveRecommendationCache or InvalidateRecommendationCache.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profile: profile record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).
		Model(profile).
		Select("name", "profile_category", "age_years", "weight_lbs", "size_category",
			"allergies", "health_conditions", "preferences", "profile_data", "updated_at").
		Updates(profile).Error
}

// SaveRecommendationCache stores the ordered id list and its generation time.
// An empty list stores the cold state (empty list, null timestamp).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: profile ID.
//   - productIDs: recommended product ids in ranked order.
//   - at: generation timestamp.
// Returns:
//   - error: domain.ErrNotFound if no profile was updated.
func (r *ProfileRepository) SaveRecommendationCache(ctx context.Context, id string, productIDs []string, at time.Time) error {
	var generatedAt *time.Time
	if len(productIDs) > 0 {
		generatedAt = &at
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recommended_product_ids":      domain.StringArray(productIDs),
			"recommendations_generated_at": generatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InvalidateRecommendationCache clears the cached id list and timestamp and
// bumps the cache version in a single statement.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: profile ID.
// Returns:
//   - error: domain.ErrNotFound if no profile was updated.
func (r *ProfileRepository) InvalidateRecommendationCache(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recommended_product_ids":       domain.StringArray{},
			"recommendations_generated_at":  nil,
			"recommendations_cache_version": gorm.Expr("recommendations_cache_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a profile together with its recommendation records and
// wishlist entries in one transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: profile ID to delete.
// Returns:
//   - error: domain.ErrNotFound if the profile does not exist.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.RecommendationRecord{}, "profile_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.WishlistItem{}, "profile_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Profile{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
