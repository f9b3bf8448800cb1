package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/logger"
	"gorm.io/datatypes"
)

// CreateProfileRequest describes a new profile.
type CreateProfileRequest struct {
	Name             string                 `json:"name" binding:"required"`
	ProfileCategory  string                 `json:"profile_category" binding:"required"`
	AgeYears         float64                `json:"age_years"`
	WeightLbs        *float64               `json:"weight_lbs"`
	Allergies        []string               `json:"allergies"`
	HealthConditions []string               `json:"health_conditions"`
	Preferences      map[string]interface{} `json:"preferences"`
	ProfileData      map[string]interface{} `json:"profile_data"`
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name             *string                `json:"name"`
	ProfileCategory  *string                `json:"profile_category"`
	AgeYears         *float64               `json:"age_years"`
	WeightLbs        *float64               `json:"weight_lbs"`
	Allergies        *[]string              `json:"allergies"`
	HealthConditions *[]string              `json:"health_conditions"`
	Preferences      map[string]interface{} `json:"preferences"`
	ProfileData      map[string]interface{} `json:"profile_data"`
}

// ProfileService manages profiles and keeps their recommendation cache
// consistent with the fields that drive filtering.
type ProfileService struct {
	profiles ProfileStore
	cache    *CacheStore
}

// NewProfileService creates a profile service.
func NewProfileService(profiles ProfileStore, cache *CacheStore) *ProfileService {
	return &ProfileService{profiles: profiles, cache: cache}
}

// Create stores a new profile owned by userID.
func (s *ProfileService) Create(ctx context.Context, userID string, req CreateProfileRequest) (*domain.Profile, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidf("name is required")
	}
	if strings.TrimSpace(req.ProfileCategory) == "" {
		return nil, invalidf("profile_category is required")
	}
	if req.AgeYears < 0 {
		return nil, invalidf("age_years must not be negative")
	}
	if req.WeightLbs != nil && *req.WeightLbs <= 0 {
		return nil, invalidf("weight_lbs must be positive")
	}

	profile := &domain.Profile{
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		ProfileCategory:  req.ProfileCategory,
		AgeYears:         req.AgeYears,
		WeightLbs:        req.WeightLbs,
		Allergies:        req.Allergies,
		HealthConditions: req.HealthConditions,
		Preferences:      datatypes.JSONMap(req.Preferences),
		ProfileData:      datatypes.JSONMap(req.ProfileData),
	}
	profile.Normalize()

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	logger.CtxInfo(ctx, "Profile created: profile_id=%s, category=%s", profile.ID, profile.ProfileCategory)
	return profile, nil
}

// Get returns a profile owned by userID.
func (s *ProfileService) Get(ctx context.Context, userID, id string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "profile")
	}
	if profile.UserID != userID {
		return nil, fmt.Errorf("profile %s: %w", id, ErrForbidden)
	}
	return profile, nil
}

// List returns every profile owned by userID.
func (s *ProfileService) List(ctx context.Context, userID string) ([]domain.Profile, error) {
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// Update applies a partial update. Changing allergies, health conditions,
// age or category invalidates the profile's recommendation cache.
func (s *ProfileService) Update(ctx context.Context, userID, id string, req UpdateProfileRequest) (*domain.Profile, error) {
	profile, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	stale := false
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, invalidf("name must not be empty")
		}
		profile.Name = strings.TrimSpace(*req.Name)
	}
	if req.ProfileCategory != nil {
		category := domain.NormalizeStage(*req.ProfileCategory)
		if category == "" {
			return nil, invalidf("profile_category must not be empty")
		}
		stale = stale || category != profile.ProfileCategory
		profile.ProfileCategory = category
	}
	if req.AgeYears != nil {
		if *req.AgeYears < 0 {
			return nil, invalidf("age_years must not be negative")
		}
		stale = stale || *req.AgeYears != profile.AgeYears
		profile.AgeYears = *req.AgeYears
	}
	if req.WeightLbs != nil {
		if *req.WeightLbs <= 0 {
			return nil, invalidf("weight_lbs must be positive")
		}
		profile.WeightLbs = req.WeightLbs
	}
	if req.Allergies != nil {
		next := domain.NormalizeTokens(*req.Allergies)
		stale = stale || !slices.Equal(next, profile.Allergies)
		profile.Allergies = next
	}
	if req.HealthConditions != nil {
		next := domain.NormalizeTokens(*req.HealthConditions)
		stale = stale || !slices.Equal(next, profile.HealthConditions)
		profile.HealthConditions = next
	}
	if req.Preferences != nil {
		profile.Preferences = datatypes.JSONMap(req.Preferences)
	}
	if req.ProfileData != nil {
		profile.ProfileData = datatypes.JSONMap(req.ProfileData)
	}
	profile.Normalize()

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if !stale {
		return profile, nil
	}

	if err := s.cache.Invalidate(ctx, profile.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a profile with its recommendation records and wishlist links.
func (s *ProfileService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return storeErr(err, "profile")
	}
	logger.CtxInfo(ctx, "Profile deleted: profile_id=%s", id)
	return nil
}
