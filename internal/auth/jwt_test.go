package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTokenService(t *testing.T) (*TokenService, *fakeClock) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewTokenService(TokenConfig{
		Secret:     "test-secret",
		Issuer:     "chatelio",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, redisstore.NewRefreshStore(client)).WithClock(clock.Now)
	return svc, clock
}

func TestTokenService_IssueVerify_RoundTrip(t *testing.T) {
	svc, _ := setupTokenService(t)
	ctx := context.Background()
	companyID := uuid.New()

	for _, p := range []Principal{
		CompanyPrincipal(companyID),
		UserPrincipal(companyID, uuid.New()),
		GuestPrincipal(companyID, uuid.New()),
	} {
		pair, err := svc.Issue(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "bearer", pair.TokenType)
		assert.Equal(t, int64(1800), pair.ExpiresIn)

		got, err := svc.Verify(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestTokenService_GuestHasNoRefreshToken(t *testing.T) {
	svc, _ := setupTokenService(t)

	pair, err := svc.Issue(context.Background(), GuestPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, pair.RefreshToken)
}

func TestTokenService_Verify_Expired(t *testing.T) {
	svc, clock := setupTokenService(t)

	pair, err := svc.Issue(context.Background(), UserPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = svc.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Verify_Invalid(t *testing.T) {
	svc, _ := setupTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, UserPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "chatelio", AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)
	otherPair, err := other.Issue(ctx, GuestPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		CompanyID: uuid.New(),
		Kind:      KindCompany,
		TokenType: TokenAccess,
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":           "not-a-token",
		"empty":             "",
		"refresh as access": pair.RefreshToken,
		"foreign secret":    otherPair.AccessToken,
		"alg none":          noneToken,
		"tampered":          pair.AccessToken[:len(pair.AccessToken)-2] + "xx",
	}
	for name, tok := range cases {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestTokenService_Refresh_RotatesAndRejectsReplay(t *testing.T) {
	svc, clock := setupTokenService(t)
	ctx := context.Background()
	p := CompanyPrincipal(uuid.New())

	first, err := svc.Issue(ctx, p)
	require.NoError(t, err)

	clock.Advance(time.Second)
	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	got, err := svc.Verify(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _ := setupTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, UserPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Refresh_Expired(t *testing.T) {
	svc, clock := setupTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, UserPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_Revoke(t *testing.T) {
	svc, _ := setupTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, UserPrincipal(uuid.New(), uuid.New()))
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipal_Owner(t *testing.T) {
	companyID, subject := uuid.New(), uuid.New()

	assert.Equal(t, models.UserOwner(subject), UserPrincipal(companyID, subject).Owner())
	assert.Equal(t, models.GuestOwner(subject), GuestPrincipal(companyID, subject).Owner())
	assert.False(t, CompanyPrincipal(companyID).Owner().Valid())
}
