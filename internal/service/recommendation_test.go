package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/timmy/personashop/internal/domain"
)

type recommendationFixture struct {
	svc      *RecommendationService
	provider *scriptedProvider
	profiles *memProfiles
	products *memProducts
	records  *memRecords
}

// newRecommendationFixture seeds ten dog foods named "Food 0".."Food 9".
// Odd-numbered foods below 8 contain chicken; each food scores 10*n+5.
func newRecommendationFixture(t *testing.T, failFor string) *recommendationFixture {
	t.Helper()

	var catalog []domain.Product
	for i := 0; i < 10; i++ {
		var attrs domain.Attributes
		if i%2 == 1 && i < 8 {
			attrs = withAllergens("chicken")
		}
		catalog = append(catalog, food(fmt.Sprintf("p%d", i), fmt.Sprintf("Food %d", i), "dog", attrs))
	}
	catalog = append(catalog, food("c1", "Cat Food", "cat", nil))

	provider := &scriptedProvider{respond: func(_ context.Context, _, user string) (string, error) {
		if failFor != "" && strings.Contains(user, "- Name: "+failFor+"\n") {
			return "", context.DeadlineExceeded
		}
		if strings.Contains(user, "BEST_CHOICE") {
			return "Food 4 is the better fit.\nBEST_CHOICE: Food 4", nil
		}
		for i := 0; i < 10; i++ {
			if strings.Contains(user, fmt.Sprintf("- Name: Food %d\n", i)) {
				return fmt.Sprintf("EXPLANATION: Fine.\nPROS:\n- Good\nCONS:\n- None\nMATCH_SCORE: %d", 10*i+5), nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}

	profiles := newMemProfiles(&domain.Profile{
		ID: "prof", UserID: "u1", Name: "Rex", ProfileCategory: "dog", AgeYears: 3,
		Allergies: domain.StringArray{"chicken"},
	})
	products := &memProducts{products: catalog}
	records := newMemRecords()
	client := NewCompletionClient(provider, 0.7, nil)
	cache := NewCacheStore(profiles, records, client, nil, nil, CacheConfig{})
	svc := NewRecommendationService(profiles, products, cache, client, RecommendationConfig{})

	return &recommendationFixture{svc: svc, provider: provider, profiles: profiles, products: products, records: records}
}

func itemIDs(items []*RecommendationItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Product.ID
	}
	return ids
}

func TestRecommendationService_Regenerate(t *testing.T) {
	ctx := context.Background()
	f := newRecommendationFixture(t, "")

	resp, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 5})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(resp.Recommendations) != 5 {
		t.Fatalf("got %d items, want 5", len(resp.Recommendations))
	}
	if resp.TotalSafeProducts != 6 || resp.TotalFilteredOut != 4 {
		t.Errorf("totals = %d safe / %d filtered, want 6 / 4", resp.TotalSafeProducts, resp.TotalFilteredOut)
	}

	// First five safe foods in catalog order are 0,2,4,6,8; scores ascend with n.
	want := []string{"p8", "p6", "p4", "p2", "p0"}
	if got := itemIDs(resp.Recommendations); !reflect.DeepEqual(got, want) {
		t.Errorf("item order = %v, want %v", got, want)
	}

	stored, _ := f.profiles.GetByID(ctx, "prof")
	if !reflect.DeepEqual([]string(stored.RecommendedProductIDs), want) {
		t.Errorf("persisted ids = %v, want %v", stored.RecommendedProductIDs, want)
	}
	if stored.RecommendationsGeneratedAt == nil {
		t.Error("expected generation timestamp")
	}
	if stored.RecommendationsCacheVersion != 1 {
		t.Errorf("version = %d, regeneration must not bump it", stored.RecommendationsCacheVersion)
	}
	if n := f.provider.calls.Load(); n != 5 {
		t.Errorf("provider calls = %d, want 5", n)
	}
}

func TestRecommendationService_CacheHit(t *testing.T) {
	ctx := context.Background()
	f := newRecommendationFixture(t, "")

	first, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	calls := f.provider.calls.Load()

	second, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if f.provider.calls.Load() != calls {
		t.Error("cache hit must not call the provider")
	}
	if got := itemIDs(second.Recommendations); !reflect.DeepEqual(got, []string{"p8", "p6", "p4"}) {
		t.Errorf("cached ids = %v", got)
	}
	if second.TotalFilteredOut != 0 || second.TotalSafeProducts != 3 {
		t.Errorf("totals = %d / %d", second.TotalSafeProducts, second.TotalFilteredOut)
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Errorf("generated_at = %v, want stored %v", second.GeneratedAt, first.GeneratedAt)
	}
}

func TestRecommendationService_CacheHitDropsDanglingIDs(t *testing.T) {
	ctx := context.Background()
	f := newRecommendationFixture(t, "")

	if _, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 5}); err != nil {
		t.Fatal(err)
	}
	f.products.products[6].IsActive = false

	resp, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if got := itemIDs(resp.Recommendations); !reflect.DeepEqual(got, []string{"p8", "p4", "p2", "p0"}) {
		t.Errorf("ids = %v", got)
	}
}

func TestRecommendationService_TimeoutDegradesOneItem(t *testing.T) {
	f := newRecommendationFixture(t, "Food 2")

	resp, err := f.svc.Generate(context.Background(), GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 5})
	if err != nil {
		t.Fatalf("Generate() must not fail on provider timeout: %v", err)
	}

	var degraded *RecommendationItem
	for _, item := range resp.Recommendations {
		if item.Product.ID == "p2" {
			degraded = item
		}
	}
	if degraded == nil {
		t.Fatal("missing item for timed-out product")
	}
	if degraded.Explanation == "" || len(degraded.Pros) == 0 || len(degraded.Cons) == 0 || degraded.MatchScore != 70 {
		t.Errorf("fallback not populated: %+v", degraded)
	}

	rec, err := f.records.Get(context.Background(), "prof", "p2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.AIProvider != domain.ProviderRuleBased {
		t.Errorf("ai_provider = %q", rec.AIProvider)
	}
}

func TestRecommendationService_NoSafeProductsStoresColdCache(t *testing.T) {
	ctx := context.Background()
	f := newRecommendationFixture(t, "")
	for i := range f.products.products {
		f.products.products[i].Attributes = withAllergens("chicken")
	}

	resp, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Recommendations) != 0 || resp.TotalFilteredOut != 10 {
		t.Errorf("unexpected response %+v", resp)
	}
	stored, _ := f.profiles.GetByID(ctx, "prof")
	if stored.HasWarmCache() || stored.RecommendationsGeneratedAt != nil {
		t.Error("empty regeneration must store the cold state")
	}
}

func TestRecommendationService_GenerateErrors(t *testing.T) {
	f := newRecommendationFixture(t, "")

	tests := []struct {
		name string
		req  GenerateRequest
		want error
	}{
		{"unknown profile", GenerateRequest{UserID: "u1", ProfileID: "nope"}, ErrNotFound},
		{"other owner", GenerateRequest{UserID: "u2", ProfileID: "prof"}, ErrForbidden},
		{"limit too large", GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 51}, ErrInvalidRequest},
		{"negative limit", GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: -1}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecommendationService_Compare(t *testing.T) {
	ctx := context.Background()

	t.Run("id count", func(t *testing.T) {
		f := newRecommendationFixture(t, "")
		cases := map[int]error{1: ErrInvalidRequest, 2: nil, 3: nil, 4: nil, 5: ErrInvalidRequest}
		all := []string{"p0", "p2", "p4", "p6", "p8"}
		for n, want := range cases {
			_, err := f.svc.Compare(ctx, CompareRequest{UserID: "u1", ProfileID: "prof", ProductIDs: all[:n]})
			if want == nil && err != nil {
				t.Errorf("%d ids: unexpected error %v", n, err)
			}
			if want != nil && !errors.Is(err, want) {
				t.Errorf("%d ids: error = %v, want %v", n, err, want)
			}
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newRecommendationFixture(t, "")
		_, err := f.svc.Compare(ctx, CompareRequest{UserID: "u1", ProfileID: "prof", ProductIDs: []string{"p0", "missing"}})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate ids", func(t *testing.T) {
		f := newRecommendationFixture(t, "")
		_, err := f.svc.Compare(ctx, CompareRequest{UserID: "u1", ProfileID: "prof", ProductIDs: []string{"p0", "p0"}})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("request order and best choice", func(t *testing.T) {
		f := newRecommendationFixture(t, "")
		resp, err := f.svc.Compare(ctx, CompareRequest{UserID: "u1", ProfileID: "prof", ProductIDs: []string{"p4", "p0", "p1"}})
		if err != nil {
			t.Fatal(err)
		}
		if got := itemIDs(resp.Recommendations); !reflect.DeepEqual(got, []string{"p4", "p0", "p1"}) {
			t.Errorf("item order = %v", got)
		}
		if resp.BestChoice != "p4" {
			t.Errorf("best choice = %q, want p4", resp.BestChoice)
		}
		if resp.ComparisonSummary != "Food 4 is the better fit." {
			t.Errorf("summary = %q", resp.ComparisonSummary)
		}
		if resp.Recommendations[2].IsSafe {
			t.Error("allergen product must be reported unsafe")
		}
		if _, err := f.records.Get(ctx, "prof", "p1"); !errors.Is(err, domain.ErrNotFound) {
			t.Error("unsafe product must not be stored")
		}
	})
}

func TestRecommendationService_RegenerationAfterExpiry(t *testing.T) {
	ctx := context.Background()
	f := newRecommendationFixture(t, "")
	if _, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 2}); err != nil {
		t.Fatal(err)
	}

	f.svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	resp, err := f.svc.Generate(ctx, GenerateRequest{UserID: "u1", ProfileID: "prof", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalFilteredOut != 4 {
		t.Errorf("expected regeneration path after profile cache expiry, got filtered=%d", resp.TotalFilteredOut)
	}
	if n := f.provider.calls.Load(); n != 2 {
		t.Errorf("provider calls = %d, live records should be reused", n)
	}
}
