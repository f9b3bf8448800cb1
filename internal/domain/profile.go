package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Size categories derived from weight.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// Profile is a consumer (pet, baby or adult) whose attributes drive filtering
// and personalization. It also carries the profile-level recommendation cache.
type Profile struct {
	ID               string            `gorm:"type:text;primaryKey" json:"id"`
	UserID           string            `gorm:"type:text;not null;index:idx_profiles_user" json:"user_id"`
	Name             string            `gorm:"type:text;not null" json:"name"`
	ProfileCategory  string            `gorm:"type:text;not null;index:idx_profiles_category" json:"profile_category"`
	AgeYears         float64           `json:"age_years"`
	WeightLbs        *float64          `json:"weight_lbs,omitempty"`
	SizeCategory     string            `gorm:"type:text" json:"size_category,omitempty"`
	Allergies        StringArray       `gorm:"type:text" json:"allergies"`
	HealthConditions StringArray       `gorm:"type:text" json:"health_conditions"`
	Preferences      datatypes.JSONMap `json:"preferences"`
	ProfileData      datatypes.JSONMap `json:"profile_data"`

	RecommendedProductIDs       StringArray `gorm:"type:text" json:"recommended_product_ids"`
	RecommendationsGeneratedAt  *time.Time  `json:"recommendations_generated_at,omitempty"`
	RecommendationsCacheVersion int         `gorm:"not null;default:1" json:"recommendations_cache_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns an ID and the initial cache version.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.RecommendationsCacheVersion == 0 {
		p.RecommendationsCacheVersion = 1
	}
	return nil
}

// Normalize canonicalizes token sets and recomputes the derived size.
func (p *Profile) Normalize() {
	p.ProfileCategory = NormalizeStage(p.ProfileCategory)
	p.Allergies = NormalizeTokens(p.Allergies)
	p.HealthConditions = NormalizeTokens(p.HealthConditions)
	p.SizeCategory = DeriveSizeCategory(p.ProfileCategory, p.WeightLbs)
}

// HasWarmCache reports whether the cached id list is populated.
func (p *Profile) HasWarmCache() bool {
	return len(p.RecommendedProductIDs) > 0 && p.RecommendationsGeneratedAt != nil
}

// DeriveSizeCategory returns the size class for weight-bearing categories.
// Only dogs are sized; everything else yields "".
func DeriveSizeCategory(category string, weightLbs *float64) string {
	if category != "dog" || weightLbs == nil {
		return ""
	}
	switch w := *weightLbs; {
	case w <= 20:
		return SizeSmall
	case w <= 50:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// JuvenileStage returns the life-stage token that marks food as suitable
// for animals or people under one year old.
func JuvenileStage(category string) string {
	switch category {
	case "dog":
		return "puppy"
	case "cat":
		return "kitten"
	case "rabbit":
		return "kit"
	case "bird":
		return "chick"
	case "fish":
		return "fry"
	case "baby", "human":
		return "infant"
	default:
		return "juvenile"
	}
}
