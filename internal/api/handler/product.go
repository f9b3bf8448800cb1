package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/personashop/internal/service"
)

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /api/v1/products?category=&skip=&limit=.
func (h *ProductHandler) List(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be an integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}

	products, err := h.products.List(c.Request.Context(), c.Query("category"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Search handles GET /api/v1/products/search?q=&category=.
func (h *ProductHandler) Search(c *gin.Context) {
	products, err := h.products.Search(c.Request.Context(), c.Query("q"), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Get handles GET /api/v1/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// KeyFeatures handles GET /api/v1/products/:id/key-features.
func (h *ProductHandler) KeyFeatures(c *gin.Context) {
	features, err := h.products.KeyFeatures(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":   c.Param("id"),
		"key_features": features[:],
	})
}
