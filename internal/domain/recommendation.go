package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderRuleBased tags records produced by the deterministic fallback.
const ProviderRuleBased = "rule_based"

// RecommendationRecord caches one generated explanation per (profile, product).
// Records are upserted, never duplicated, and expire rather than being deleted.
type RecommendationRecord struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	ProfileID   string      `gorm:"type:text;not null;uniqueIndex:idx_recommendations_pair" json:"profile_id"`
	ProductID   string      `gorm:"type:text;not null;uniqueIndex:idx_recommendations_pair" json:"product_id"`
	IsSafe      bool        `gorm:"not null;default:true" json:"is_safe"`
	MatchScore  int         `json:"match_score"`
	Explanation string      `gorm:"type:text" json:"explanation"`
	Pros        StringArray `gorm:"type:text" json:"pros"`
	Cons        StringArray `gorm:"type:text" json:"cons"`
	GeneratedAt time.Time   `json:"generated_at"`
	ExpiresAt   *time.Time  `gorm:"index:idx_recommendations_expires" json:"expires_at,omitempty"`
	AIProvider  string      `gorm:"column:ai_provider;type:text" json:"ai_provider"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for RecommendationRecord.
func (RecommendationRecord) TableName() string {
	return "recommendations"
}

// BeforeCreate assigns an ID when none is set.
func (r *RecommendationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Live reports whether the record is unexpired at now. A record without an
// expiry never goes stale.
func (r *RecommendationRecord) Live(now time.Time) bool {
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}

// WishlistItem is a product saved by a user, optionally for a profile.
type WishlistItem struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID string    `gorm:"type:text;not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	ProfileID *string   `gorm:"type:text;index:idx_wishlist_profile" json:"profile_id,omitempty"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	Product   *Product  `gorm:"-" json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for WishlistItem.
func (WishlistItem) TableName() string {
	return "wishlist_items"
}

// BeforeCreate assigns an ID when none is set.
func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}
