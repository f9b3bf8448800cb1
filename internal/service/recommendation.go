package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/metrics"
)

const (
	minCompareProducts = 2
	maxCompareProducts = 4
)

// RecommendationConfig holds orchestrator limits.
type RecommendationConfig struct {
	DefaultLimit  int
	MaxLimit      int
	CandidatePool int // active products scanned on regeneration
}

// GenerateRequest asks for personalized recommendations for one profile.
type GenerateRequest struct {
	UserID       string
	ProfileID    string
	Limit        int // 0 means the configured default
	ForceRefresh bool
}

// RecommendationResponse is the result of Generate.
type RecommendationResponse struct {
	Profile           *domain.Profile       `json:"profile"`
	Recommendations   []*RecommendationItem `json:"recommendations"`
	TotalSafeProducts int                   `json:"total_safe_products"`
	TotalFilteredOut  int                   `json:"total_filtered_out"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// CompareRequest asks for a side-by-side comparison of 2 to 4 products.
type CompareRequest struct {
	UserID     string
	ProfileID  string
	ProductIDs []string
}

// ComparisonResponse is the result of Compare.
type ComparisonResponse struct {
	Profile           *domain.Profile       `json:"profile"`
	Products          []domain.Product      `json:"products"`
	Recommendations   []*RecommendationItem `json:"recommendations"`
	ComparisonSummary string                `json:"comparison_summary"`
	BestChoice        string                `json:"best_choice,omitempty"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// RecommendationService orchestrates filtering, caching and completion for
// recommendation and comparison requests.
type RecommendationService struct {
	profiles  ProfileStore
	products  ProductStore
	cache     *CacheStore
	completer Completer
	filter    SafetyFilter
	cfg       RecommendationConfig
	now       func() time.Time
}

// NewRecommendationService creates the orchestrator.
// Parameters:
//   - profiles: profile persistence.
//   - products: catalog persistence.
//   - cache: recommendation cache store.
//   - completer: completion client used for comparisons.
//   - cfg: limits; zero values use 10, 50 and 100.
//
// Returns:
//   - *RecommendationService: initialized service.
func NewRecommendationService(
	profiles ProfileStore,
	products ProductStore,
	cache *CacheStore,
	completer Completer,
	cfg RecommendationConfig,
) *RecommendationService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 100
	}
	return &RecommendationService{
		profiles:  profiles,
		products:  products,
		cache:     cache,
		completer: completer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate returns recommendations for a profile, serving the cached id
// list when it is still valid and regenerating otherwise.
func (s *RecommendationService) Generate(ctx context.Context, req GenerateRequest) (*RecommendationResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < 1 || limit > s.cfg.MaxLimit {
		return nil, invalidf("limit must be between 1 and %d", s.cfg.MaxLimit)
	}

	profile, err := s.ownedProfile(ctx, req.UserID, req.ProfileID)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetProfileID(ctx, profile.ID)

	start := time.Now()
	if s.cache.IsCacheValid(profile, req.ForceRefresh, s.now()) {
		resp, err := s.fromCache(ctx, profile, limit)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			metrics.RecordGeneration("cache_hit", time.Since(start))
			return resp, nil
		}
		logger.CtxWarn(ctx, "Cached recommendations no longer resolve, regenerating")
	}

	resp, err := s.regenerate(ctx, profile, limit, req.ForceRefresh)
	if err != nil {
		return nil, err
	}
	metrics.RecordGeneration("regenerate", time.Since(start))
	logger.With(logger.Fields{
		"total_safe":   resp.TotalSafeProducts,
		"filtered_out": resp.TotalFilteredOut,
	}).WithCount(len(resp.Recommendations)).WithDuration(start).
		Info(ctx, "Recommendations regenerated")
	return resp, nil
}

// fromCache serves the cached id list. Ids that no longer resolve to an
// active product are dropped; nil is returned when none resolve.
func (s *RecommendationService) fromCache(ctx context.Context, profile *domain.Profile, limit int) (*RecommendationResponse, error) {
	ids := []string(profile.RecommendedProductIDs)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]*RecommendationItem, 0, len(ids))
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			continue
		}
		item, err := s.cache.GetOrCreate(ctx, profile, product, false)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sortByScore(items)

	return &RecommendationResponse{
		Profile:           profile,
		Recommendations:   items,
		TotalSafeProducts: len(items),
		TotalFilteredOut:  0,
		GeneratedAt:       *profile.RecommendationsGeneratedAt,
	}, nil
}

// regenerate filters the category's candidates in storage order, analyzes
// the first limit safe ones and stores the score-sorted id list.
func (s *RecommendationService) regenerate(ctx context.Context, profile *domain.Profile, limit int, force bool) (*RecommendationResponse, error) {
	candidates, err := s.products.ListActive(ctx, profile.ProfileCategory, s.cfg.CandidatePool, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var safe []*domain.Product
	filtered := 0
	for i := range candidates {
		ok, reasons := s.filter.Check(profile, &candidates[i])
		if !ok {
			filtered++
			logger.CtxDebug(ctx, "Product filtered: product_id=%s, reasons=%v", candidates[i].ID, reasons)
			continue
		}
		safe = append(safe, &candidates[i])
	}
	metrics.SafetyRejectionsTotal.Add(float64(filtered))

	selected := safe
	if len(selected) > limit {
		selected = selected[:limit]
	}

	items := make([]*RecommendationItem, 0, len(selected))
	for _, product := range selected {
		item, err := s.cache.GetOrCreate(ctx, profile, product, force)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sortByScore(items)

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Product.ID
	}
	now := s.now()
	if err := s.cache.SaveProfileCache(ctx, profile.ID, ids, now); err != nil {
		return nil, err
	}
	profile.RecommendedProductIDs = ids
	profile.RecommendationsGeneratedAt = &now
	if len(ids) == 0 {
		profile.RecommendationsGeneratedAt = nil
	}

	return &RecommendationResponse{
		Profile:           profile,
		Recommendations:   items,
		TotalSafeProducts: len(safe),
		TotalFilteredOut:  filtered,
		GeneratedAt:       now,
	}, nil
}

// Compare analyzes 2 to 4 products and asks for a single summary naming
// the best choice. Items keep the request order.
func (s *RecommendationService) Compare(ctx context.Context, req CompareRequest) (*ComparisonResponse, error) {
	if n := len(req.ProductIDs); n < minCompareProducts || n > maxCompareProducts {
		return nil, invalidf("can only compare %d-%d products, got %d", minCompareProducts, maxCompareProducts, n)
	}
	seen := make(map[string]bool, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if seen[id] {
			return nil, invalidf("duplicate product id %q", id)
		}
		seen[id] = true
	}

	profile, err := s.ownedProfile(ctx, req.UserID, req.ProfileID)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetProfileID(ctx, profile.ID)

	found, err := s.products.GetByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	products := make([]domain.Product, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("product %s %w", id, ErrNotFound)
		}
		products = append(products, p)
	}

	items := make([]*RecommendationItem, 0, len(products))
	prior := make([]RecommendationResult, 0, len(products))
	for i := range products {
		item, err := s.compareItem(ctx, profile, &products[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		prior = append(prior, RecommendationResult{
			MatchScore:  item.MatchScore,
			Explanation: item.Explanation,
			Pros:        item.Pros,
			Cons:        item.Cons,
		})
	}

	result := s.completer.Compare(ctx, profile, products, prior)

	return &ComparisonResponse{
		Profile:           profile,
		Products:          products,
		Recommendations:   items,
		ComparisonSummary: result.Summary,
		BestChoice:        result.BestChoiceID,
		GeneratedAt:       s.now(),
	}, nil
}

// compareItem analyzes one compared product. Products that fail the safety
// filter are reported as unsafe and never stored.
func (s *RecommendationService) compareItem(ctx context.Context, profile *domain.Profile, product *domain.Product) (*RecommendationItem, error) {
	if ok, reasons := s.filter.Check(profile, product); !ok {
		return &RecommendationItem{
			Product:     product,
			IsSafe:      false,
			MatchScore:  0,
			Explanation: fmt.Sprintf("Not recommended for %s: %s.", profile.Name, reasons[0]),
			Pros:        []string{},
			Cons:        reasons,
			GeneratedAt: s.now(),
		}, nil
	}
	return s.cache.GetOrCreate(ctx, profile, product, false)
}

func (s *RecommendationService) ownedProfile(ctx context.Context, userID, profileID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, storeErr(err, "profile")
	}
	if profile.UserID != userID {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrForbidden)
	}
	return profile, nil
}

// sortByScore orders items by match score, highest first, keeping input
// order among equal scores.
func sortByScore(items []*RecommendationItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MatchScore > items[j].MatchScore
	})
}
