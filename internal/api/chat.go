package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

func NewChatHandler(chat *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

type sendMessageRequest struct {
	Message string     `json:"message" binding:"required"`
	ChatID  *uuid.UUID `json:"chat_id"`
	Title   string     `json:"title"`
	Model   string     `json:"model"`
}

type renameRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// Send handles POST /v1/chat/send and streams the reply as SSE.
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	turn, err := h.chat.Send(c.Request.Context(), middleware.GetPrincipal(c), service.SendInput{
		ChatID:  req.ChatID,
		Title:   req.Title,
		Message: req.Message,
		Model:   req.Model,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	streamTurn(c, turn)
}

// List handles GET /v1/chat/list
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.chat.List(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// History handles GET /v1/chat/history/:chat_id
func (h *ChatHandler) History(c *gin.Context) {
	chatID, ok := h.chatID(c)
	if !ok {
		return
	}
	hist, err := h.chat.History(c.Request.Context(), middleware.GetPrincipal(c), chatID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// Rename handles PUT /v1/chat/title/:chat_id
func (h *ChatHandler) Rename(c *gin.Context) {
	chatID, ok := h.chatID(c)
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	chat, err := h.chat.Rename(c.Request.Context(), middleware.GetPrincipal(c), chatID, req.Title)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// Delete handles DELETE /v1/chat/:chat_id
func (h *ChatHandler) Delete(c *gin.Context) {
	chatID, ok := h.chatID(c)
	if !ok {
		return
	}
	if err := h.chat.Delete(c.Request.Context(), middleware.GetPrincipal(c), chatID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted"})
}

func (h *ChatHandler) chatID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		// A malformed id is as unknown as a missing one.
		writeError(c, h.logger, apperr.NotFound("Chat not found or access denied"))
		return uuid.Nil, false
	}
	return id, true
}

// streamTurn writes each event as "data: <json>\n\n" until the turn ends
// or the client disconnects. Leaving early cancels the turn.
func streamTurn(c *gin.Context, turn *service.Turn) {
	defer turn.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Chat-ID", turn.ChatID.String())
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case ev, ok := <-turn.Events():
			if !ok {
				return
			}
			if err := writeSSE(c.Writer, ev); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func writeSSE(w io.Writer, ev service.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
