package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves end users and guests of a company.
type UserHandler struct {
	identity *service.IdentityService
	urls     service.URLConfig
	logger   *zap.Logger
}

func NewUserHandler(identity *service.IdentityService, urls service.URLConfig, logger *zap.Logger) *UserHandler {
	return &UserHandler{identity: identity, urls: urls, logger: logger}
}

type registerUserRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Name      string    `json:"name"`
	Password  string    `json:"password" binding:"required,min=8"`
}

type loginUserRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Password  string    `json:"password" binding:"required"`
}

type guestRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
}

type convertGuestRequest struct {
	CompanyID *uuid.UUID `json:"company_id"`
	Email     string     `json:"email" binding:"required,email"`
	Name      string     `json:"name"`
	Password  string     `json:"password" binding:"required,min=8"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.RegisterUser(c.Request.Context(), service.RegisterUserInput{
		CompanyID: req.CompanyID,
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login handles POST /v1/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.LoginUser(c.Request.Context(), req.CompanyID, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Guest handles POST /v1/users/guest
func (h *UserHandler) Guest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.CreateGuestSession(c.Request.Context(), req.CompanyID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ConvertGuest handles POST /v1/users/convert-guest. The caller must hold a
// guest token; its chats move to the new account.
func (h *UserHandler) ConvertGuest(c *gin.Context) {
	var req convertGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.identity.ConvertGuestToUser(c.Request.Context(), middleware.GetPrincipal(c), service.ConvertInput{
		CompanyID: req.CompanyID,
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Profile handles GET /v1/users/profile
func (h *UserHandler) Profile(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if err := service.RequireChatter(p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	prof, err := h.identity.Profile(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

// SessionCheck handles GET /v1/users/session/check. Reaching the handler
// means the token and its subject are still valid.
func (h *UserHandler) SessionCheck(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user_type":  p.Kind,
		"company_id": p.CompanyID,
		"subject_id": p.SubjectID,
	})
}

// CompanyInfo handles GET /v1/users/company/:company_id/info
func (h *UserHandler) CompanyInfo(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("company_id"))
	if err != nil {
		writeError(c, h.logger, apperr.Validation("invalid company ID"))
		return
	}
	co, err := h.identity.CompanyInfo(c.Request.Context(), companyID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                  co.ID,
		"name":                co.Name,
		"slug":                co.Slug,
		"chatbot_title":       co.ChatbotTitle,
		"chatbot_description": co.ChatbotDescription,
		"is_published":        co.IsPublished,
		"chatbot_url":         h.urls.ChatbotURL(co.SlugValue()),
	})
}
