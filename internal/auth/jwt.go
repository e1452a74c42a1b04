package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, wrong token
	// type and refresh tokens that were already used.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned only for otherwise valid tokens past exp.
	ErrExpiredToken = errors.New("token expired")
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the payload inside every token.
//
// Subject carries the principal's SubjectID and ID (jti) is unique per token,
// which is what refresh rotation keys on.
type Claims struct {
	CompanyID uuid.UUID `json:"company_id"`
	Kind      Kind      `json:"kind"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshStore remembers which refresh tokens are still redeemable.
// Consume must be atomic: of two concurrent calls for the same jti at most
// one returns true.
type RefreshStore interface {
	Save(ctx context.Context, jti, subject string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (bool, error)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and validates HS256 tokens.
//
// Token shapes:
//   - access: short lived (ACCESS_TOKEN_TTL, 30m by default), stateless.
//     Verify needs only the secret, so every request is checked without a
//     store round trip.
//   - refresh: long lived (REFRESH_TOKEN_TTL, 7 days by default). Its jti
//     is recorded in the RefreshStore and redeemed at most once; Refresh
//     consumes it and issues a fresh pair.
//   - guests get an access token only. A guest token is tied to its
//     session, which the Identity service checks on every request, and a
//     new one is handed out with each public chat turn.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig, store RefreshStore) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		store:      store,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue returns an access token for p and, for company and user
// principals, a refresh token. Guests never receive a refresh token.
func (s *TokenService) Issue(ctx context.Context, p Principal) (*TokenPair, error) {
	if !p.Kind.Valid() || p.SubjectID == uuid.Nil || p.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("issue token: invalid principal %+v", p)
	}

	access, _, err := s.sign(p, TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	pair := &TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.accessTTL / time.Second),
	}
	if p.Kind == KindGuest {
		return pair, nil
	}

	refresh, jti, err := s.sign(p, TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, jti, p.SubjectID.String(), s.refreshTTL); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	pair.RefreshToken = refresh
	return pair, nil
}

// Verify validates an access token and returns the principal it names.
func (s *TokenService) Verify(token string) (Principal, error) {
	claims, err := s.parse(token, TokenAccess)
	if err != nil {
		return Principal{}, err
	}
	return claims.principal()
}

// Refresh redeems a refresh token exactly once and returns a new pair with
// a rotated refresh token. Replaying a redeemed token yields ErrInvalidToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}
	p, err := claims.principal()
	if err != nil {
		return nil, err
	}
	if p.Kind == KindGuest {
		return nil, ErrInvalidToken
	}

	// Consume before issuing: if two requests race with the same refresh
	// token, the store lets exactly one through and the other sees !ok.
	ok, err := s.store.Consume(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	return s.Issue(ctx, p)
}

// Revoke invalidates a refresh token. Revoking twice is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, TokenRefresh)
	if err != nil {
		return err
	}
	if _, err := s.store.Consume(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) sign(p Principal, typ TokenType, ttl time.Duration) (string, string, error) {
	now := s.now()
	jti := uuid.NewString()

	// Subject is the company, user or guest session id depending on Kind;
	// CompanyID is repeated for users and guests so the tenant is known
	// without a lookup.
	claims := Claims{
		CompanyID: p.CompanyID,
		Kind:      p.Kind,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.SubjectID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, nil
}

func (s *TokenService) parse(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			// Reject "none" and asymmetric algorithms before checking the signature.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	// Only expiry gets its own error; callers report it as "token expired".
	// Everything else (bad signature, wrong issuer, garbage) is collapsed
	// into ErrInvalidToken so nothing about the failure leaks.
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	// An access token presented as a refresh token (or the reverse) is
	// invalid even with a good signature.
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != want || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *Claims) principal() (Principal, error) {
	if !c.Kind.Valid() || c.CompanyID == uuid.Nil {
		return Principal{}, ErrInvalidToken
	}
	sub, err := uuid.Parse(c.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if c.Kind == KindCompany && sub != c.CompanyID {
		return Principal{}, ErrInvalidToken
	}
	return Principal{CompanyID: c.CompanyID, SubjectID: sub, Kind: c.Kind}, nil
}
