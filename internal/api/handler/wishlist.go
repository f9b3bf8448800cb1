package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/personashop/internal/api/middleware"
	"github.com/timmy/personashop/internal/service"
)

// WishlistHandler handles wishlist endpoints.
type WishlistHandler struct {
	wishlist *service.WishlistService
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(wishlist *service.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// List handles GET /api/v1/wishlist.
func (h *WishlistHandler) List(c *gin.Context) {
	items, err := h.wishlist.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Add handles POST /api/v1/wishlist.
func (h *WishlistHandler) Add(c *gin.Context) {
	var req service.AddWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.wishlist.Add(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Remove handles DELETE /api/v1/wishlist/:id.
func (h *WishlistHandler) Remove(c *gin.Context) {
	if err := h.wishlist.Remove(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveProduct handles DELETE /api/v1/wishlist/product/:product_id.
func (h *WishlistHandler) RemoveProduct(c *gin.Context) {
	if err := h.wishlist.RemoveProduct(c.Request.Context(), middleware.UserID(c), c.Param("product_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
