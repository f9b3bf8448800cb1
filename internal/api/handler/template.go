package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/personashop/internal/domain"
)

// TemplateHandler serves the static profile presets.
type TemplateHandler struct{}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, domain.ProfileTemplates())
}

// Category handles GET /api/v1/templates/:category.
func (h *TemplateHandler) Category(c *gin.Context) {
	category, ok := domain.ProfileTemplates()[c.Param("category")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template category not found"})
		return
	}
	c.JSON(http.StatusOK, category)
}

// Preset handles GET /api/v1/templates/:category/:preset.
func (h *TemplateHandler) Preset(c *gin.Context) {
	preset, ok := domain.FindPreset(c.Param("category"), c.Param("preset"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, preset)
}
