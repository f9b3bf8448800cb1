package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/personashop/internal/domain"
)

// AddWishlistRequest saves a product, optionally for one of the user's profiles.
type AddWishlistRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	ProfileID *string `json:"profile_id"`
	Notes     string  `json:"notes"`
}

// WishlistService manages saved products.
type WishlistService struct {
	wishlist WishlistStore
	products ProductStore
	profiles ProfileStore
}

// NewWishlistService creates a wishlist service.
func NewWishlistService(wishlist WishlistStore, products ProductStore, profiles ProfileStore) *WishlistService {
	return &WishlistService{wishlist: wishlist, products: products, profiles: profiles}
}

// List returns the user's wishlist with product details attached. Entries
// whose product is no longer active carry no product.
func (s *WishlistService) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	items, err := s.wishlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist products: %w", err)
	}
	byID := make(map[string]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return items, nil
}

// Add saves a product to the user's wishlist.
func (s *WishlistService) Add(ctx context.Context, userID string, req AddWishlistRequest) (*domain.WishlistItem, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, invalidf("product_id is required")
	}
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, storeErr(err, "product")
	}

	if req.ProfileID != nil && *req.ProfileID != "" {
		profile, err := s.profiles.GetByID(ctx, *req.ProfileID)
		if err != nil {
			return nil, storeErr(err, "profile")
		}
		if profile.UserID != userID {
			return nil, fmt.Errorf("profile %s: %w", profile.ID, ErrForbidden)
		}
	} else {
		req.ProfileID = nil
	}

	item := &domain.WishlistItem{
		UserID:    userID,
		ProductID: product.ID,
		ProfileID: req.ProfileID,
		Notes:     req.Notes,
	}
	if err := s.wishlist.Add(ctx, item); err != nil {
		return nil, storeErr(err, "wishlist item")
	}
	item.Product = product
	return item, nil
}

// Remove deletes one wishlist entry by id.
func (s *WishlistService) Remove(ctx context.Context, userID, id string) error {
	if err := s.wishlist.Remove(ctx, userID, id); err != nil {
		return storeErr(err, "wishlist item")
	}
	return nil
}

// RemoveProduct deletes the user's entry for a product.
func (s *WishlistService) RemoveProduct(ctx context.Context, userID, productID string) error {
	if err := s.wishlist.RemoveByProduct(ctx, userID, productID); err != nil {
		return storeErr(err, "wishlist item")
	}
	return nil
}
