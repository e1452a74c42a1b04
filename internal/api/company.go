package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// CompanyHandler serves chatbot settings, publishing and analytics under
// /v1/companies/:company_id.
type CompanyHandler struct {
	settings  *service.SettingsService
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewCompanyHandler(settings *service.SettingsService, analytics *service.AnalyticsService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{settings: settings, analytics: analytics, logger: logger}
}

type updateSettingsRequest struct {
	Slug        *string `json:"slug"`
	Title       string  `json:"chatbot_title" binding:"max=200"`
	Description string  `json:"chatbot_description" binding:"max=2000"`
}

// GetSettings handles GET /settings
func (h *CompanyHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSettings handles PUT /settings
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	s, err := h.settings.Update(c.Request.Context(), middleware.GetPrincipal(c), service.UpdateChatbotInput{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Publish handles POST /publish
func (h *CompanyHandler) Publish(c *gin.Context) {
	s, err := h.settings.Publish(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Unpublish handles POST /unpublish
func (h *CompanyHandler) Unpublish(c *gin.Context) {
	s, err := h.settings.Unpublish(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Analytics handles GET /analytics
func (h *CompanyHandler) Analytics(c *gin.Context) {
	ov, err := h.analytics.Overview(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}
