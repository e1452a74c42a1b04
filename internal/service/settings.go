package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

var reservedSlugs = map[string]bool{
	"www": true, "api": true, "admin": true, "app": true, "public": true,
}

// SettingsService edits a company's chatbot identity and publish state.
type SettingsService struct {
	companies repository.CompanyRepository
	urls      URLConfig
	now       func() time.Time
	logger    *zap.Logger
}

func NewSettingsService(companies repository.CompanyRepository, urls URLConfig, logger *zap.Logger) *SettingsService {
	return &SettingsService{companies: companies, urls: urls, now: time.Now, logger: logger}
}

type ChatbotSettings struct {
	Company    *models.Company `json:"company"`
	ChatbotURL string          `json:"chatbot_url"`
}

type UpdateChatbotInput struct {
	// Slug is left unchanged when nil.
	Slug        *string
	Title       string
	Description string
}

func (s *SettingsService) Get(ctx context.Context, p auth.Principal) (*ChatbotSettings, error) {
	c, err := s.company(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

func (s *SettingsService) Update(ctx context.Context, p auth.Principal, in UpdateChatbotInput) (*ChatbotSettings, error) {
	if err := RequireCompany(p); err != nil {
		return nil, err
	}
	if in.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*in.Slug))
		if !slugPattern.MatchString(slug) {
			return nil, apperr.Validation("Slug must be 3-63 lowercase letters, digits or hyphens")
		}
		if reservedSlugs[slug] {
			return nil, apperr.Validation("Slug is reserved")
		}
		in.Slug = &slug
	}

	c, err := s.companies.UpdateChatbot(ctx, p.CompanyID, in.Slug, strings.TrimSpace(in.Title), strings.TrimSpace(in.Description))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Slug is already taken")
		}
		return nil, apperr.Internal("update chatbot", err)
	}
	if c == nil {
		return nil, apperr.NotFound("Company not found")
	}
	return s.view(c), nil
}

// Publish requires a slug; publishing an already published chatbot keeps
// the original published_at.
func (s *SettingsService) Publish(ctx context.Context, p auth.Principal) (*ChatbotSettings, error) {
	c, err := s.company(ctx, p)
	if err != nil {
		return nil, err
	}
	if c.SlugValue() == "" {
		return nil, apperr.Validation("Set a slug before publishing")
	}
	if c.IsPublished {
		return s.view(c), nil
	}
	c, err = s.companies.SetPublished(ctx, p.CompanyID, true, s.now())
	if err != nil {
		return nil, apperr.Internal("publish chatbot", err)
	}
	s.logger.Info("chatbot published", zap.String("company_id", p.CompanyID.String()), zap.String("slug", c.SlugValue()))
	return s.view(c), nil
}

func (s *SettingsService) Unpublish(ctx context.Context, p auth.Principal) (*ChatbotSettings, error) {
	if err := RequireCompany(p); err != nil {
		return nil, err
	}
	c, err := s.companies.SetPublished(ctx, p.CompanyID, false, s.now())
	if err != nil {
		return nil, apperr.Internal("unpublish chatbot", err)
	}
	if c == nil {
		return nil, apperr.NotFound("Company not found")
	}
	return s.view(c), nil
}

func (s *SettingsService) company(ctx context.Context, p auth.Principal) (*models.Company, error) {
	if err := RequireCompany(p); err != nil {
		return nil, err
	}
	c, err := s.companies.GetByID(ctx, p.CompanyID)
	if err != nil {
		return nil, apperr.Internal("get company", err)
	}
	if c == nil {
		return nil, apperr.NotFound("Company not found")
	}
	return c, nil
}

func (s *SettingsService) view(c *models.Company) *ChatbotSettings {
	return &ChatbotSettings{Company: c, ChatbotURL: s.urls.ChatbotURL(c.SlugValue())}
}
