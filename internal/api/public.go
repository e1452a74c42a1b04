package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// PublicHandler serves published chatbots to anonymous visitors, either
// by slug in the path or by the slug the Subdomain middleware found.
type PublicHandler struct {
	public *service.PublicService
	logger *zap.Logger
}

func NewPublicHandler(public *service.PublicService, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{public: public, logger: logger}
}

type publicChatRequest struct {
	Message   string     `json:"message" binding:"required"`
	SessionID *uuid.UUID `json:"session_id"`
	ChatID    *uuid.UUID `json:"chat_id"`
	Title     string     `json:"title"`
	Model     string     `json:"model"`
}

// Info handles GET /v1/public/chatbot/:slug and GET /v1/public/
func (h *PublicHandler) Info(c *gin.Context) {
	info, err := h.public.Info(c.Request.Context(), slugOf(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Chat handles POST /v1/public/chatbot/:slug/chat and POST /v1/public/chat.
// The start event carries the guest session id and a guest access token so
// the widget can continue the conversation.
func (h *PublicHandler) Chat(c *gin.Context) {
	var req publicChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	turn, err := h.public.Send(c.Request.Context(), slugOf(c), service.PublicSendInput{
		SessionID: req.SessionID,
		ChatID:    req.ChatID,
		Title:     req.Title,
		Message:   req.Message,
		Model:     req.Model,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("X-Session-ID", turn.Session.ID.String())
	c.Header("X-Company-Slug", turn.Company.SlugValue())
	streamTurn(c, turn.Turn)
}

func slugOf(c *gin.Context) string {
	if s := c.Param("slug"); s != "" {
		return s
	}
	return middleware.GetSlug(c)
}
