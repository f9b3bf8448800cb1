package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/personashop/internal/domain"
)

// scriptedProvider answers every prompt with respond.
type scriptedProvider struct {
	respond func(ctx context.Context, system, user string) (string, error)
	calls   atomic.Int32
}

func (p *scriptedProvider) Complete(ctx context.Context, system, user string, _ int, _ float32) (string, error) {
	p.calls.Add(1)
	return p.respond(ctx, system, user)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func replyWith(content string) *scriptedProvider {
	return &scriptedProvider{respond: func(context.Context, string, string) (string, error) {
		return content, nil
	}}
}

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]*domain.Profile
}

func newMemProfiles(profiles ...*domain.Profile) *memProfiles {
	s := &memProfiles{byID: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		if p.RecommendationsCacheVersion == 0 {
			p.RecommendationsCacheVersion = 1
		}
		cp := *p
		s.byID[p.ID] = &cp
	}
	return s
}

func (s *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = "profile-" + time.Now().Format("150405.000000000")
	}
	p.RecommendationsCacheVersion = 1
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProfiles) ListByUser(_ context.Context, userID string) ([]domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Profile
	for _, p := range s.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProfiles) Update(_ context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := *p
	next.RecommendedProductIDs = cur.RecommendedProductIDs
	next.RecommendationsGeneratedAt = cur.RecommendationsGeneratedAt
	next.RecommendationsCacheVersion = cur.RecommendationsCacheVersion
	s.byID[p.ID] = &next
	return nil
}

func (s *memProfiles) SaveRecommendationCache(_ context.Context, id string, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RecommendedProductIDs = append(domain.StringArray{}, ids...)
	if len(ids) == 0 {
		p.RecommendationsGeneratedAt = nil
	} else {
		p.RecommendationsGeneratedAt = &at
	}
	return nil
}

func (s *memProfiles) InvalidateRecommendationCache(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RecommendedProductIDs = domain.StringArray{}
	p.RecommendationsGeneratedAt = nil
	p.RecommendationsCacheVersion++
	return nil
}

func (s *memProfiles) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// memProducts keeps products in insertion (storage) order.
type memProducts struct {
	mu       sync.Mutex
	products []domain.Product
}

func (s *memProducts) active() []domain.Product {
	var out []domain.Product
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

func (s *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.active() {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memProducts) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Product
	for _, p := range s.active() {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memProducts) ListActive(_ context.Context, category string, limit, offset int) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Product
	for _, p := range s.active() {
		if category == "" || p.ProductCategory == category {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memProducts) Search(context.Context, string, string, int) ([]domain.Product, error) {
	return nil, nil
}

func (s *memProducts) UpdateAttributes(_ context.Context, id string, attrs domain.Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Attributes = attrs
			return nil
		}
	}
	return domain.ErrNotFound
}

type memRecords struct {
	mu      sync.Mutex
	byPair  map[string]domain.RecommendationRecord
	upserts int
}

func newMemRecords() *memRecords {
	return &memRecords{byPair: make(map[string]domain.RecommendationRecord)}
}

func (s *memRecords) Get(_ context.Context, profileID, productID string) (*domain.RecommendationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byPair[profileID+":"+productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *memRecords) Upsert(_ context.Context, rec *domain.RecommendationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.byPair[rec.ProfileID+":"+rec.ProductID] = *rec
	return nil
}

func (s *memRecords) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPair)
}

type memWishlist struct {
	mu    sync.Mutex
	items []domain.WishlistItem
}

func (s *memWishlist) ListByUser(_ context.Context, userID string) ([]domain.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WishlistItem
	for _, it := range s.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *memWishlist) Add(_ context.Context, item *domain.WishlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.UserID == item.UserID && it.ProductID == item.ProductID {
			return domain.ErrDuplicate
		}
	}
	if item.ID == "" {
		item.ID = item.UserID + "/" + item.ProductID
	}
	s.items = append(s.items, *item)
	return nil
}

func (s *memWishlist) Remove(_ context.Context, userID, id string) error {
	return s.remove(func(it domain.WishlistItem) bool { return it.UserID == userID && it.ID == id })
}

func (s *memWishlist) RemoveByProduct(_ context.Context, userID, productID string) error {
	return s.remove(func(it domain.WishlistItem) bool { return it.UserID == userID && it.ProductID == productID })
}

func (s *memWishlist) remove(match func(domain.WishlistItem) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if match(it) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func food(id, name, category string, attrs domain.Attributes) domain.Product {
	if attrs == nil {
		attrs = domain.Attributes{}
	}
	return domain.Product{
		ID:              id,
		Name:            name,
		Brand:           "Acme",
		Price:           29.99,
		ProductCategory: category,
		Attributes:      attrs,
		IsActive:        true,
	}
}

func withAllergens(allergens ...string) domain.Attributes {
	list := make([]interface{}, len(allergens))
	for i, a := range allergens {
		list[i] = a
	}
	return domain.Attributes{"ingredients": map[string]interface{}{"allergens": list}}
}

func withLifeStages(stages ...string) domain.Attributes {
	list := make([]interface{}, len(stages))
	for i, s := range stages {
		list[i] = s
	}
	return domain.Attributes{"life_stage": list}
}
