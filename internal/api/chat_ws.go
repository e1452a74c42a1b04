package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 64 << 10
)

// Authenticator verifies a raw access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// WSHandler is the websocket variant of chat send. A client sends
//
//	{"type":"message","message":"...","chat_id":"...","model":"..."}
//
// and receives the same events as the SSE endpoint. {"type":"cancel"}
// stops the reply in progress.
type WSHandler struct {
	chat     *service.ChatService
	authn    Authenticator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(chat *service.ChatService, authn Authenticator, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		chat:  chat,
		authn: authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

type wsRequest struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	ChatID  *uuid.UUID `json:"chat_id"`
	Title   string     `json:"title"`
	Model   string     `json:"model"`
}

// Serve handles GET /v1/chat/ws. Browsers cannot set headers on the
// upgrade request, so the token may also come as ?token=.
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	}
	if token == "" {
		writeError(c, h.logger, apperr.Unauthenticated("Missing authorization token"))
		return
	}
	p, err := h.authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := service.RequireChatter(p); err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	incoming := make(chan wsRequest)
	go func() {
		defer close(incoming)
		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			select {
			case incoming <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	var turn *service.Turn
	var events <-chan service.Event
	for {
		select {
		case req, ok := <-incoming:
			if !ok {
				if turn != nil {
					turn.Cancel()
				}
				return
			}
			if req.Type == "cancel" {
				if turn != nil {
					turn.Cancel()
				}
				continue
			}
			if turn != nil {
				h.write(conn, service.Event{Type: service.EventError, Detail: "A reply is already in progress"})
				continue
			}
			t, err := h.chat.Send(ctx, p, service.SendInput{
				ChatID:  req.ChatID,
				Title:   req.Title,
				Message: req.Message,
				Model:   req.Model,
			})
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					h.logger.Error("websocket send failed", zap.Error(err))
				}
				h.write(conn, service.Event{Type: service.EventError, Detail: apperr.PublicDetail(err)})
				continue
			}
			turn, events = t, t.Events()

		case ev, ok := <-events:
			if !ok {
				turn, events = nil, nil
				continue
			}
			if err := h.write(conn, ev); err != nil {
				turn.Cancel()
				return
			}
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, ev service.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
