package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves company sign-up/login and the token endpoints shared
// by every kind of principal.
type AuthHandler struct {
	identity *service.IdentityService
	logger   *zap.Logger
}

func NewAuthHandler(identity *service.IdentityService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, logger: logger}
}

type registerCompanyRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginCompanyRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterCompany handles POST /v1/auth/company/register
func (h *AuthHandler) RegisterCompany(c *gin.Context) {
	var req registerCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.RegisterCompany(c.Request.Context(), service.RegisterCompanyInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// LoginCompany handles POST /v1/auth/company/login
func (h *AuthHandler) LoginCompany(c *gin.Context) {
	var req loginCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.LoginCompany(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refresh handles POST /v1/auth/refresh. The presented refresh token is
// spent; a second use is rejected.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	pair, err := h.identity.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.identity.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Verify handles GET /v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user_type":  p.Kind,
		"company_id": p.CompanyID,
		"subject_id": p.SubjectID,
	})
}

// CompanyProfile handles GET /v1/auth/company/profile
func (h *AuthHandler) CompanyProfile(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if err := service.RequireCompany(p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	prof, err := h.identity.Profile(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prof.Company)
}
