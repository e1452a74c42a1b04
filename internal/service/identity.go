package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	detailInvalidCredentials = "Invalid email or password"
	detailInvalidToken       = "invalid token"
	detailExpiredToken       = "token expired"
	detailCompanyRequired    = "Company access required"
	detailChatterRequired    = "User or guest access required"
	detailGuestUnavailable   = "Guest session has expired or already been converted"
	detailDuplicateUser      = "User with this email already exists in this company"
)

// IdentityService turns bearer tokens into principals and owns every flow
// that creates an identity: company and user registration, login, guest
// sessions and guest conversion.
type IdentityService struct {
	companies repository.CompanyRepository
	users     repository.UserRepository
	sessions  repository.GuestSessionRepository
	tokens    *auth.TokenService
	guestTTL  time.Duration
	hashCost  int
	now       func() time.Time
	logger    *zap.Logger
}

func NewIdentityService(
	companies repository.CompanyRepository,
	users repository.UserRepository,
	sessions repository.GuestSessionRepository,
	tokens *auth.TokenService,
	guestTTL time.Duration,
	logger *zap.Logger,
) *IdentityService {
	return &IdentityService{
		companies: companies,
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		guestTTL:  guestTTL,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// Resolve authenticates an Authorization header value ("Bearer <token>").
func (s *IdentityService) Resolve(ctx context.Context, header string) (auth.Principal, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return auth.Principal{}, apperr.Unauthenticated("Invalid authentication credentials")
	}
	return s.Authenticate(ctx, strings.TrimSpace(parts[1]))
}

// Authenticate verifies a raw access token and confirms its subject still
// exists: the company, the user inside that company, or an active guest
// session of that company.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	p, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return auth.Principal{}, apperr.Unauthenticated(detailExpiredToken)
		}
		return auth.Principal{}, apperr.Unauthenticated(detailInvalidToken)
	}

	switch p.Kind {
	case auth.KindCompany:
		c, err := s.companies.GetByID(ctx, p.CompanyID)
		if err != nil {
			return auth.Principal{}, apperr.Internal("resolve company", err)
		}
		if c == nil {
			return auth.Principal{}, apperr.Unauthenticated("Company not found")
		}
	case auth.KindUser:
		u, err := s.users.GetByID(ctx, p.CompanyID, p.SubjectID)
		if err != nil {
			return auth.Principal{}, apperr.Internal("resolve user", err)
		}
		if u == nil {
			return auth.Principal{}, apperr.Unauthenticated("User not found")
		}
	case auth.KindGuest:
		g, err := s.sessions.GetByID(ctx, p.CompanyID, p.SubjectID)
		if err != nil {
			return auth.Principal{}, apperr.Internal("resolve guest session", err)
		}
		if g == nil || !g.Active(s.now()) {
			return auth.Principal{}, apperr.Unauthenticated("Guest session not found or expired")
		}
	}
	return p, nil
}

// AuthorizeCompanyScope allows p to act on target only when they are the
// same tenant.
func (s *IdentityService) AuthorizeCompanyScope(p auth.Principal, target uuid.UUID) error {
	if p.CompanyID == uuid.Nil || p.CompanyID != target {
		return apperr.Forbidden("Access to this company is not allowed")
	}
	return nil
}

func RequireCompany(p auth.Principal) error {
	if p.Kind != auth.KindCompany {
		return apperr.Forbidden(detailCompanyRequired)
	}
	return nil
}

func RequireChatter(p auth.Principal) error {
	if p.Kind != auth.KindUser && p.Kind != auth.KindGuest {
		return apperr.Forbidden(detailChatterRequired)
	}
	return nil
}

type CompanyAuth struct {
	Company *models.Company  `json:"company"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

type UserAuth struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type GuestAuth struct {
	Session *models.GuestSession `json:"session"`
	Tokens  *auth.TokenPair      `json:"tokens"`
}

type RegisterCompanyInput struct {
	Name     string
	Email    string
	Password string
}

func (s *IdentityService) RegisterCompany(ctx context.Context, in RegisterCompanyInput) (*CompanyAuth, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	c, err := s.companies.Create(ctx, strings.TrimSpace(in.Name), normalizeEmail(in.Email), string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Company with this email already exists")
		}
		return nil, apperr.Internal("create company", err)
	}

	tokens, err := s.tokens.Issue(ctx, auth.CompanyPrincipal(c.ID))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	s.logger.Info("company registered", zap.String("company_id", c.ID.String()))
	return &CompanyAuth{Company: c, Tokens: tokens}, nil
}

func (s *IdentityService) LoginCompany(ctx context.Context, email, password string) (*CompanyAuth, error) {
	c, err := s.companies.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperr.Internal("find company", err)
	}
	// Same detail for unknown email and wrong password.
	if c == nil || bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated(detailInvalidCredentials)
	}

	tokens, err := s.tokens.Issue(ctx, auth.CompanyPrincipal(c.ID))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	return &CompanyAuth{Company: c, Tokens: tokens}, nil
}

type RegisterUserInput struct {
	CompanyID uuid.UUID
	Email     string
	Name      string
	Password  string
}

func (s *IdentityService) RegisterUser(ctx context.Context, in RegisterUserInput) (*UserAuth, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if err := s.requireCompanyExists(ctx, in.CompanyID); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u, err := s.users.Create(ctx, in.CompanyID, normalizeEmail(in.Email), strings.TrimSpace(in.Name), string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(detailDuplicateUser)
		}
		return nil, apperr.Internal("create user", err)
	}

	tokens, err := s.tokens.Issue(ctx, auth.UserPrincipal(u.CompanyID, u.ID))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	return &UserAuth{User: u, Tokens: tokens}, nil
}

func (s *IdentityService) LoginUser(ctx context.Context, companyID uuid.UUID, email, password string) (*UserAuth, error) {
	u, err := s.users.GetByEmail(ctx, companyID, normalizeEmail(email))
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated(detailInvalidCredentials)
	}

	tokens, err := s.tokens.Issue(ctx, auth.UserPrincipal(u.CompanyID, u.ID))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	return &UserAuth{User: u, Tokens: tokens}, nil
}

// CreateGuestSession starts an anonymous session that expires after the
// configured guest TTL. Guests receive an access token only.
func (s *IdentityService) CreateGuestSession(ctx context.Context, companyID uuid.UUID, ip, userAgent string) (*GuestAuth, error) {
	if err := s.requireCompanyExists(ctx, companyID); err != nil {
		return nil, err
	}
	now := s.now()
	g, err := s.sessions.Create(ctx, companyID, ip, userAgent, now, now.Add(s.guestTTL))
	if err != nil {
		return nil, apperr.Internal("create guest session", err)
	}
	tokens, err := s.GuestToken(ctx, g)
	if err != nil {
		return nil, err
	}
	return &GuestAuth{Session: g, Tokens: tokens}, nil
}

func (s *IdentityService) GuestToken(ctx context.Context, g *models.GuestSession) (*auth.TokenPair, error) {
	tokens, err := s.tokens.Issue(ctx, auth.GuestPrincipal(g.CompanyID, g.ID))
	if err != nil {
		return nil, apperr.Internal("issue guest token", err)
	}
	return tokens, nil
}

// ActiveGuestSession returns the session when it belongs to companyID and
// is still usable, or nil.
func (s *IdentityService) ActiveGuestSession(ctx context.Context, companyID, sessionID uuid.UUID) (*models.GuestSession, error) {
	g, err := s.sessions.GetByID(ctx, companyID, sessionID)
	if err != nil {
		return nil, apperr.Internal("get guest session", err)
	}
	if g == nil || !g.Active(s.now()) {
		return nil, nil
	}
	return g, nil
}

type ConvertInput struct {
	// CompanyID is optional; when set it must match the guest's company.
	CompanyID *uuid.UUID
	Email     string
	Name      string
	Password  string
}

type ConversionResult struct {
	User          *models.User    `json:"user"`
	Tokens        *auth.TokenPair `json:"tokens"`
	FromSessionID uuid.UUID       `json:"from_session_id"`
	ToUserID      uuid.UUID       `json:"to_user_id"`
	ChatsMoved    int             `json:"chats_moved"`
}

// ConvertGuestToUser creates a registered user from a guest principal and
// moves every chat owned by the guest session to that user. The repository
// does the create-move-mark step as one atomic unit.
func (s *IdentityService) ConvertGuestToUser(ctx context.Context, p auth.Principal, in ConvertInput) (*ConversionResult, error) {
	if p.Kind != auth.KindGuest {
		return nil, apperr.Validation("Only guest users can be converted")
	}
	if in.CompanyID != nil && *in.CompanyID != p.CompanyID {
		return nil, apperr.Forbidden("Company ID mismatch")
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u, moved, err := s.sessions.ConvertToUser(ctx, p.CompanyID, p.SubjectID,
		normalizeEmail(in.Email), strings.TrimSpace(in.Name), string(hash), s.now())
	switch {
	case errors.Is(err, repository.ErrSessionUnavailable):
		return nil, apperr.Validation(detailGuestUnavailable)
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.Conflict(detailDuplicateUser)
	case err != nil:
		return nil, apperr.Internal("convert guest", err)
	}

	tokens, err := s.tokens.Issue(ctx, auth.UserPrincipal(u.CompanyID, u.ID))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}

	s.logger.Info("guest converted",
		zap.String("company_id", p.CompanyID.String()),
		zap.String("session_id", p.SubjectID.String()),
		zap.String("user_id", u.ID.String()),
		zap.Int("chats_moved", moved),
	)
	return &ConversionResult{
		User:          u,
		Tokens:        tokens,
		FromSessionID: p.SubjectID,
		ToUserID:      u.ID,
		ChatsMoved:    moved,
	}, nil
}

func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	pair, err := s.tokens.Refresh(ctx, refreshToken)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, apperr.Unauthenticated(detailExpiredToken)
	case errors.Is(err, auth.ErrInvalidToken):
		return nil, apperr.Unauthenticated(detailInvalidToken)
	case err != nil:
		return nil, apperr.Internal("refresh token", err)
	}
	return pair, nil
}

func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.Revoke(ctx, refreshToken)
	switch {
	case errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrInvalidToken):
		return apperr.Unauthenticated(detailInvalidToken)
	case err != nil:
		return apperr.Internal("revoke token", err)
	}
	return nil
}

// Profile is the caller's own record; exactly one of the pointers is set.
type Profile struct {
	Kind    auth.Kind            `json:"user_type"`
	Company *models.Company      `json:"company,omitempty"`
	User    *models.User         `json:"user,omitempty"`
	Session *models.GuestSession `json:"session,omitempty"`
}

func (s *IdentityService) Profile(ctx context.Context, p auth.Principal) (*Profile, error) {
	out := &Profile{Kind: p.Kind}
	var err error
	switch p.Kind {
	case auth.KindCompany:
		out.Company, err = s.companies.GetByID(ctx, p.CompanyID)
		if err == nil && out.Company == nil {
			return nil, apperr.NotFound("Company not found")
		}
	case auth.KindUser:
		out.User, err = s.users.GetByID(ctx, p.CompanyID, p.SubjectID)
		if err == nil && out.User == nil {
			return nil, apperr.NotFound("User not found")
		}
	case auth.KindGuest:
		out.Session, err = s.sessions.GetByID(ctx, p.CompanyID, p.SubjectID)
		if err == nil && out.Session == nil {
			return nil, apperr.NotFound("Guest session not found")
		}
	}
	if err != nil {
		return nil, apperr.Internal("load profile", err)
	}
	return out, nil
}

// CompanyInfo is the public view of a company by id.
func (s *IdentityService) CompanyInfo(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	c, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, apperr.Internal("get company", err)
	}
	if c == nil {
		return nil, apperr.NotFound("Company not found")
	}
	return c, nil
}

func (s *IdentityService) requireCompanyExists(ctx context.Context, companyID uuid.UUID) error {
	c, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return apperr.Internal("get company", err)
	}
	if c == nil {
		return apperr.NotFound("Company not found")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
