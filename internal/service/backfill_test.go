package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/timmy/personashop/internal/domain"
)

// brokenWrites fails attribute writes for one product.
type brokenWrites struct {
	*memProducts
	failID string
}

func (s *brokenWrites) UpdateAttributes(ctx context.Context, id string, attrs domain.Attributes) error {
	if id == s.failID {
		return errors.New("disk full")
	}
	return s.memProducts.UpdateAttributes(ctx, id, attrs)
}

func newBackfillCatalog(n int) *memProducts {
	products := &memProducts{}
	for i := 0; i < n; i++ {
		products.products = append(products.products, food(fmt.Sprintf("p%d", i), fmt.Sprintf("Food %d", i), "dog", nil))
	}
	return products
}

func TestFeatureBackfill_Run(t *testing.T) {
	ctx := context.Background()
	products := newBackfillCatalog(7)
	done := domain.Attributes{}
	done.SetKeyFeatures([2]string{"Already here", "Nothing to do"})
	products.products[2].Attributes = done
	products.products[5].IsActive = false

	store := &brokenWrites{memProducts: products, failID: "p4"}
	provider := replyWith("Grain free\nHigh protein")
	svc := NewProductService(store, NewCompletionClient(provider, 0.7, nil))
	backfill := NewFeatureBackfill(store, svc, nil, BackfillConfig{Workers: 3, BatchSize: 2})

	stats, err := backfill.Run(ctx, BackfillOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if stats.Processed != 6 || stats.Computed != 4 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want processed 6, computed 4, skipped 1, failed 1", stats)
	}
	if n := provider.calls.Load(); n != 5 {
		t.Errorf("provider calls = %d, want 5", n)
	}

	for _, id := range []string{"p0", "p1", "p3", "p6"} {
		p, _ := products.GetByID(ctx, id)
		if got, ok := p.Attributes.KeyFeatures(); !ok || got != [2]string{"Grain free", "High protein"} {
			t.Errorf("%s features = %q, %v", id, got, ok)
		}
	}
}

func TestFeatureBackfill_Limit(t *testing.T) {
	ctx := context.Background()
	products := newBackfillCatalog(10)
	provider := replyWith("Grain free\nHigh protein")
	svc := NewProductService(products, NewCompletionClient(provider, 0.7, nil))
	backfill := NewFeatureBackfill(products, svc, nil, BackfillConfig{Workers: 2, BatchSize: 4})

	stats, err := backfill.Run(ctx, BackfillOptions{Category: "dog", Limit: 5})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Processed != 5 || stats.Computed != 5 {
		t.Errorf("stats = %+v, want 5 processed and computed", stats)
	}

	stats, err = backfill.Run(ctx, BackfillOptions{Category: "cat"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("processed %d products of an empty category", stats.Processed)
	}
}
