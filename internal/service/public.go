package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
	"go.uber.org/zap"
)

const detailChatbotNotFound = "Chatbot not found or not published"

type URLConfig struct {
	BaseDomain   string
	Protocol     string
	UseSubdomain bool
}

// ChatbotURL is "<protocol>://<slug>.<base>" with subdomain routing, or
// "<protocol>://<base>/v1/public/chatbot/<slug>" without it.
func (c URLConfig) ChatbotURL(slug string) string {
	if slug == "" {
		return ""
	}
	if c.UseSubdomain {
		return fmt.Sprintf("%s://%s.%s", c.Protocol, slug, c.BaseDomain)
	}
	return fmt.Sprintf("%s://%s/v1/public/chatbot/%s", c.Protocol, c.BaseDomain, slug)
}

// PublicService serves anonymous visitors of a published chatbot, reached
// by slug in the path or by subdomain.
type PublicService struct {
	companies repository.CompanyRepository
	identity  *IdentityService
	chat      *ChatService
	urls      URLConfig
	logger    *zap.Logger
}

func NewPublicService(
	companies repository.CompanyRepository,
	identity *IdentityService,
	chat *ChatService,
	urls URLConfig,
	logger *zap.Logger,
) *PublicService {
	return &PublicService{
		companies: companies,
		identity:  identity,
		chat:      chat,
		urls:      urls,
		logger:    logger,
	}
}

// ResolvePublic returns the company behind slug only when it is published.
func (s *PublicService) ResolvePublic(ctx context.Context, slug string) (*models.Company, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, apperr.NotFound(detailChatbotNotFound)
	}
	c, err := s.companies.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperr.Internal("get company by slug", err)
	}
	if c == nil || !c.IsPublished {
		return nil, apperr.NotFound(detailChatbotNotFound)
	}
	return c, nil
}

type ChatbotInfo struct {
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
}

func (s *PublicService) Info(ctx context.Context, slug string) (*ChatbotInfo, error) {
	c, err := s.ResolvePublic(ctx, slug)
	if err != nil {
		return nil, err
	}
	title := c.ChatbotTitle
	if title == "" {
		title = c.Name
	}
	return &ChatbotInfo{
		CompanyID:   c.ID,
		CompanyName: c.Name,
		Slug:        c.SlugValue(),
		Title:       title,
		Description: c.ChatbotDescription,
		URL:         s.urls.ChatbotURL(c.SlugValue()),
	}, nil
}

type PublicSendInput struct {
	// SessionID reuses an earlier guest session when it is still active
	// and belongs to the same company; otherwise a new one is created.
	SessionID *uuid.UUID
	ChatID    *uuid.UUID
	Title     string
	Message   string
	Model     string
	IP        string
	UserAgent string
}

type PublicTurn struct {
	*Turn
	Company *models.Company
	Session *models.GuestSession
}

func (s *PublicService) Send(ctx context.Context, slug string, in PublicSendInput) (*PublicTurn, error) {
	c, err := s.ResolvePublic(ctx, slug)
	if err != nil {
		return nil, err
	}
	// Reject bad input before a guest session row exists.
	if _, _, err := s.chat.checkInput(in.Message, in.Model); err != nil {
		return nil, err
	}

	var session *models.GuestSession
	if in.SessionID != nil {
		session, err = s.identity.ActiveGuestSession(ctx, c.ID, *in.SessionID)
		if err != nil {
			return nil, err
		}
	}
	if session == nil {
		created, err := s.identity.CreateGuestSession(ctx, c.ID, in.IP, in.UserAgent)
		if err != nil {
			return nil, err
		}
		session = created.Session
		s.logger.Info("guest session created",
			zap.String("company_id", c.ID.String()),
			zap.String("session_id", session.ID.String()),
		)
	}

	tokens, err := s.identity.GuestToken(ctx, session)
	if err != nil {
		return nil, err
	}

	turn, err := s.chat.Send(ctx, auth.GuestPrincipal(c.ID, session.ID), SendInput{
		ChatID:           in.ChatID,
		Title:            in.Title,
		Message:          in.Message,
		Model:            in.Model,
		startSessionID:   session.ID.String(),
		startAccessToken: tokens.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	return &PublicTurn{Turn: turn, Company: c, Session: session}, nil
}
