package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/timmy/personashop/internal/domain"
)

func newProfileFixture() (*ProfileService, *memProfiles, *memRecords) {
	at := time.Now()
	profiles := newMemProfiles(&domain.Profile{
		ID: "prof", UserID: "u1", Name: "Rex", ProfileCategory: "dog", AgeYears: 3,
		Allergies:             domain.StringArray{"chicken"},
		RecommendedProductIDs: domain.StringArray{"p1", "p2"}, RecommendationsGeneratedAt: &at,
	})
	records := newMemRecords()
	_ = records.Upsert(context.Background(), &domain.RecommendationRecord{ProfileID: "prof", ProductID: "p1", IsSafe: true, MatchScore: 80})
	cache := NewCacheStore(profiles, records, NewCompletionClient(replyWith(""), 0.7, nil), nil, nil, CacheConfig{})
	return NewProfileService(profiles, cache), profiles, records
}

func TestProfileService_Create(t *testing.T) {
	svc, _, _ := newProfileFixture()
	weight := 35.0

	profile, err := svc.Create(context.Background(), "u1", CreateProfileRequest{
		Name:            " Bella ",
		ProfileCategory: "dog",
		AgeYears:        2,
		WeightLbs:       &weight,
		Allergies:       []string{"Beef", "beef ", ""},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if profile.Name != "Bella" || profile.SizeCategory != domain.SizeMedium {
		t.Errorf("unexpected profile %+v", profile)
	}
	if !reflect.DeepEqual(profile.Allergies, domain.StringArray{"beef"}) {
		t.Errorf("allergies = %v", profile.Allergies)
	}
	if profile.RecommendationsCacheVersion != 1 {
		t.Errorf("version = %d, want 1", profile.RecommendationsCacheVersion)
	}

	_, err = svc.Create(context.Background(), "u1", CreateProfileRequest{Name: "x", ProfileCategory: "cat", AgeYears: -1})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("negative age error = %v", err)
	}
}

func TestProfileService_UpdateInvalidation(t *testing.T) {
	ctx := context.Background()
	name := "Rexy"
	age := 3.0
	newAge := 4.0
	sameAllergies := []string{"Chicken"}
	newAllergies := []string{"chicken", "beef"}

	tests := []struct {
		name           string
		req            UpdateProfileRequest
		wantInvalidate bool
	}{
		{"name only", UpdateProfileRequest{Name: &name}, false},
		{"same age", UpdateProfileRequest{AgeYears: &age}, false},
		{"same allergies after normalization", UpdateProfileRequest{Allergies: &sameAllergies}, false},
		{"new age", UpdateProfileRequest{AgeYears: &newAge}, true},
		{"new allergies", UpdateProfileRequest{Allergies: &newAllergies}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, profiles, records := newProfileFixture()

			got, err := svc.Update(ctx, "u1", "prof", tt.req)
			if err != nil {
				t.Fatalf("Update() error: %v", err)
			}

			stored, _ := profiles.GetByID(ctx, "prof")
			wantVersion := 1
			if tt.wantInvalidate {
				wantVersion = 2
			}
			if stored.RecommendationsCacheVersion != wantVersion || got.RecommendationsCacheVersion != wantVersion {
				t.Errorf("version = %d (returned %d), want %d",
					stored.RecommendationsCacheVersion, got.RecommendationsCacheVersion, wantVersion)
			}
			if tt.wantInvalidate == stored.HasWarmCache() {
				t.Errorf("warm cache = %v after update", stored.HasWarmCache())
			}
			if records.count() != 1 {
				t.Error("records must survive invalidation")
			}
		})
	}
}

func TestProfileService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newProfileFixture()

	if _, err := svc.Get(ctx, "u2", "prof"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get() error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, "u2", "prof"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, "u1", "prof"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", "prof"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
