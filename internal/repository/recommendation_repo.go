package repository

import (
	"context"

	"github.com/timmy/personashop/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationRepository handles per-(profile, product) recommendation records.
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a new RecommendationRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RecommendationRepository: repository instance bound to db.
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Get retrieves the record for a (profile, product) pair regardless of expiry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID: profile ID.
//   - productID: product ID.
// Returns:
//   - *domain.RecommendationRecord: record if found.
//   - error: domain.ErrNotFound if no record exists for the pair.
func (r *RecommendationRepository) Get(ctx context.Context, profileID, productID string) (*domain.RecommendationRecord, error) {
	var rec domain.RecommendationRecord
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND product_id = ?", profileID, productID).
		First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// Upsert creates the record or overwrites the existing one for the pair.
// The row id of an existing record is preserved and rec is reloaded from
// the stored row, so rec.ID identifies it afterwards.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *RecommendationRepository) Upsert(ctx context.Context, rec *domain.RecommendationRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "profile_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_safe", "match_score", "explanation", "pros", "cons",
				"generated_at", "expires_at", "ai_provider", "updated_at",
			}),
		}).Create(rec).Error; err != nil {
			return err
		}
		var stored domain.RecommendationRecord
		if err := tx.Where("profile_id = ? AND product_id = ?", rec.ProfileID, rec.ProductID).
			Take(&stored).Error; err != nil {
			return err
		}
		*rec = stored
		return nil
	})
	return translate(err)
}

// CountByProfile counts records stored for a profile.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID: profile ID.
// Returns:
//   - int64: number of records.
//   - error: non-nil if the query fails.
func (r *RecommendationRepository) CountByProfile(ctx context.Context, profileID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.RecommendationRecord{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
