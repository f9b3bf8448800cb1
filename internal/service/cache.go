package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/lock"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// RecommendationItem is a product paired with its analysis for one profile.
type RecommendationItem struct {
	Product     *domain.Product `json:"product"`
	IsSafe      bool            `json:"is_safe"`
	MatchScore  int             `json:"match_score"`
	Explanation string          `json:"explanation"`
	Pros        []string        `json:"pros"`
	Cons        []string        `json:"cons"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// CacheConfig holds the two cache lifetimes.
type CacheConfig struct {
	ProfileTTL time.Duration // validity of a profile's cached id list
	RecordTTL  time.Duration // lifetime of a per-(profile, product) record
}

// CacheStore owns both cache layers: the ordered id list on the profile and
// the per-(profile, product) recommendation records.
type CacheStore struct {
	profiles  ProfileStore
	records   RecommendationStore
	completer Completer
	locker    lock.Locker
	group     singleflight.Group
	logger    *logger.Logger

	profileTTL time.Duration
	recordTTL  time.Duration
	now        func() time.Time
}

// NewCacheStore creates a cache store.
// Parameters:
//   - profiles: profile persistence.
//   - records: recommendation record persistence.
//   - completer: completion client used on a record miss.
//   - locker: cross-instance generation lock; nil means lock.Noop.
//   - log: logger instance.
//   - cfg: cache lifetimes; zero values use 7 and 30 days.
//
// Returns:
//   - *CacheStore: initialized store.
func NewCacheStore(
	profiles ProfileStore,
	records RecommendationStore,
	completer Completer,
	locker lock.Locker,
	log *logger.Logger,
	cfg CacheConfig,
) *CacheStore {
	if locker == nil {
		locker = lock.Noop{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 7 * 24 * time.Hour
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = 30 * 24 * time.Hour
	}
	return &CacheStore{
		profiles:   profiles,
		records:    records,
		completer:  completer,
		locker:     locker,
		logger:     log,
		profileTTL: cfg.ProfileTTL,
		recordTTL:  cfg.RecordTTL,
		now:        time.Now,
	}
}

// IsCacheValid reports whether the profile's cached id list may be served.
func (s *CacheStore) IsCacheValid(profile *domain.Profile, force bool, now time.Time) bool {
	if force || !profile.HasWarmCache() {
		return false
	}
	return now.Sub(*profile.RecommendationsGeneratedAt) < s.profileTTL
}

// GetOrCreate returns the live record for (profile, product) or generates,
// stores and returns a new one. force skips the record lookup. The product
// must already have passed the safety filter.
func (s *CacheStore) GetOrCreate(ctx context.Context, profile *domain.Profile, product *domain.Product, force bool) (*RecommendationItem, error) {
	if !force {
		item, err := s.lookup(ctx, profile, product)
		if err != nil {
			return nil, err
		}
		if item != nil {
			metrics.RecordRecordCache(true)
			return item, nil
		}
	}
	metrics.RecordRecordCache(false)

	// The flight is detached from each caller's cancellation; a caller that
	// gives up just stops waiting.
	key := profile.ID + ":" + product.ID
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.generate(context.WithoutCancel(ctx), key, profile, product, force)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Shared callers must not alias one item.
		item := *res.Val.(*RecommendationItem)
		return &item, nil
	}
}

func (s *CacheStore) lookup(ctx context.Context, profile *domain.Profile, product *domain.Product) (*RecommendationItem, error) {
	rec, err := s.records.Get(ctx, profile.ID, product.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation: %w", err)
	}
	if !rec.Live(s.now()) {
		return nil, nil
	}
	return itemFromRecord(product, rec), nil
}

func (s *CacheStore) generate(ctx context.Context, key string, profile *domain.Profile, product *domain.Product, force bool) (*RecommendationItem, error) {
	// Generation proceeds without the lock when it is busy or unreachable.
	release, err := s.locker.Acquire(ctx, "recommendation:"+key)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		metrics.RecordLockFailure("busy")
		s.logger.WithField(logger.FieldProductID, product.ID).
			Warn("Generation lock busy, generating without it")
	case err != nil:
		metrics.RecordLockFailure("error")
		s.logger.WithField(logger.FieldProductID, product.ID).WithError(err).
			Warn("Generation lock unavailable, generating without it")
	default:
		defer release()
	}

	// Another instance may have finished while we waited on the lock.
	if !force {
		item, err := s.lookup(ctx, profile, product)
		if err != nil || item != nil {
			return item, err
		}
	}

	result := s.completer.Recommend(ctx, profile, product)

	now := s.now()
	expires := now.Add(s.recordTTL)
	rec := &domain.RecommendationRecord{
		ProfileID:   profile.ID,
		ProductID:   product.ID,
		IsSafe:      true,
		MatchScore:  clampScore(result.MatchScore),
		Explanation: result.Explanation,
		Pros:        domain.StringArray(result.Pros),
		Cons:        domain.StringArray(result.Cons),
		GeneratedAt: now,
		ExpiresAt:   &expires,
		AIProvider:  result.Provider,
	}
	if err := s.records.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save recommendation: %w", err)
	}
	return itemFromRecord(product, rec), nil
}

// Invalidate clears the profile's cached id list and bumps its version.
// Recommendation records are kept for opportunistic reuse.
func (s *CacheStore) Invalidate(ctx context.Context, profileID string) error {
	if err := s.profiles.InvalidateRecommendationCache(ctx, profileID); err != nil {
		return storeErr(err, "profile")
	}
	metrics.CacheInvalidationsTotal.Inc()
	logger.CtxInfo(ctx, "Recommendation cache invalidated: profile_id=%s", profileID)
	return nil
}

// SaveProfileCache stores the ordered id list. An empty list stores the
// cold state.
func (s *CacheStore) SaveProfileCache(ctx context.Context, profileID string, productIDs []string, at time.Time) error {
	if err := s.profiles.SaveRecommendationCache(ctx, profileID, productIDs, at); err != nil {
		return storeErr(err, "profile")
	}
	return nil
}

func itemFromRecord(product *domain.Product, rec *domain.RecommendationRecord) *RecommendationItem {
	return &RecommendationItem{
		Product:     product,
		IsSafe:      rec.IsSafe,
		MatchScore:  rec.MatchScore,
		Explanation: rec.Explanation,
		Pros:        append([]string(nil), rec.Pros...),
		Cons:        append([]string(nil), rec.Cons...),
		GeneratedAt: rec.GeneratedAt,
	}
}
