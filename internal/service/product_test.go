package service

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/personashop/internal/domain"
)

func TestProductService_KeyFeaturesComputedOnce(t *testing.T) {
	ctx := context.Background()
	provider := replyWith("High protein recipe\nNo artificial colors")
	products := &memProducts{products: []domain.Product{food("p1", "Chow", "dog", nil)}}
	svc := NewProductService(products, NewCompletionClient(provider, 0.7, nil))

	for i := 0; i < 2; i++ {
		got, err := svc.KeyFeatures(ctx, "p1")
		if err != nil {
			t.Fatalf("KeyFeatures() error: %v", err)
		}
		if got != [2]string{"High protein recipe", "No artificial colors"} {
			t.Errorf("KeyFeatures() = %q", got)
		}
	}
	if n := provider.calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}

	stored, _ := products.GetByID(ctx, "p1")
	if _, ok := stored.Attributes.KeyFeatures(); !ok {
		t.Error("key features were not persisted")
	}
}

func TestProductService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewProductService(&memProducts{}, NewCompletionClient(replyWith(""), 0.7, nil))

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"short query", func() error { _, err := svc.Search(ctx, " a ", ""); return err }, ErrInvalidRequest},
		{"limit too large", func() error { _, err := svc.List(ctx, "dog", 0, 101); return err }, ErrInvalidRequest},
		{"negative skip", func() error { _, err := svc.List(ctx, "dog", -1, 10); return err }, ErrInvalidRequest},
		{"unknown product", func() error { _, err := svc.Get(ctx, "nope"); return err }, ErrNotFound},
		{"default limit", func() error { _, err := svc.List(ctx, "", 0, 0); return err }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
