package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/personashop/internal/api/middleware"
	"github.com/timmy/personashop/internal/service"
)

// RecommendationHandler handles recommendation and comparison endpoints.
type RecommendationHandler struct {
	recommendations *service.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(recommendations *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

type generateBody struct {
	ProfileID    string `json:"profile_id" binding:"required"`
	Limit        int    `json:"limit"`
	ForceRefresh bool   `json:"force_refresh"`
}

type compareBody struct {
	ProfileID  string   `json:"profile_id" binding:"required"`
	ProductIDs []string `json:"product_ids"`
}

// Generate handles POST /api/v1/recommendations.
func (h *RecommendationHandler) Generate(c *gin.Context) {
	var body generateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.recommendations.Generate(c.Request.Context(), service.GenerateRequest{
		UserID:       middleware.UserID(c),
		ProfileID:    body.ProfileID,
		Limit:        body.Limit,
		ForceRefresh: body.ForceRefresh,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Compare handles POST /api/v1/recommendations/compare.
func (h *RecommendationHandler) Compare(c *gin.Context) {
	var body compareBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.recommendations.Compare(c.Request.Context(), service.CompareRequest{
		UserID:     middleware.UserID(c),
		ProfileID:  body.ProfileID,
		ProductIDs: body.ProductIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
