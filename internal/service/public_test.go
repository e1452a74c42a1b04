package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/config"
	"github.com/lalith-99/chatelio/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func (h *harness) publish(t *testing.T, companyID uuid.UUID, slug string) {
	t.Helper()
	p := auth.CompanyPrincipal(companyID)
	_, err := h.settings.Update(context.Background(), p, UpdateChatbotInput{Slug: strPtr(slug), Title: "Acme Helper"})
	require.NoError(t, err)
	_, err = h.settings.Publish(context.Background(), p)
	require.NoError(t, err)
}

func TestURLConfig_ChatbotURL(t *testing.T) {
	sub := URLConfig{BaseDomain: "chatelio.io", Protocol: "https", UseSubdomain: true}
	assert.Equal(t, "https://acme.chatelio.io", sub.ChatbotURL("acme"))

	path := URLConfig{BaseDomain: "localhost:8080", Protocol: "http"}
	assert.Equal(t, "http://localhost:8080/v1/public/chatbot/acme", path.ChatbotURL("acme"))
	assert.Empty(t, path.ChatbotURL(""))
}

func TestSettings_SlugRules(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	a := h.company(t, "a@acme.test")
	b := h.company(t, "b@acme.test")
	pa := auth.CompanyPrincipal(a.Company.ID)

	for _, bad := range []string{"a", "-acme", "acme-", "has space", "www", "api"} {
		_, err := h.settings.Update(ctx, pa, UpdateChatbotInput{Slug: strPtr(bad)})
		requireKind(t, err, apperr.KindValidation)
	}

	res, err := h.settings.Update(ctx, pa, UpdateChatbotInput{Slug: strPtr(" Acme-Support "), Title: "Helper"})
	require.NoError(t, err)
	assert.Equal(t, "acme-support", res.Company.SlugValue())
	assert.Equal(t, "https://acme-support.chatelio.test", res.ChatbotURL)

	_, err = h.settings.Update(ctx, auth.CompanyPrincipal(b.Company.ID), UpdateChatbotInput{Slug: strPtr("acme-support")})
	requireKind(t, err, apperr.KindConflict)

	_, err = h.settings.Update(ctx, h.user(t, a.Company.ID, "u@example.test"), UpdateChatbotInput{Title: "x"})
	requireKind(t, err, apperr.KindForbidden)
}

func TestSettings_PublishRequiresSlug(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")
	p := auth.CompanyPrincipal(c.Company.ID)

	_, err := h.settings.Publish(ctx, p)
	requireKind(t, err, apperr.KindValidation)

	h.publish(t, c.Company.ID, "acme")
	got, err := h.settings.Get(ctx, p)
	require.NoError(t, err)
	assert.True(t, got.Company.IsPublished)
	require.NotNil(t, got.Company.PublishedAt)

	got, err = h.settings.Unpublish(ctx, p)
	require.NoError(t, err)
	assert.False(t, got.Company.IsPublished)
}

func TestPublic_UnpublishedIsNotFound(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")

	_, err := h.public.Info(ctx, "acme")
	requireKind(t, err, apperr.KindNotFound)

	_, err = h.settings.Update(ctx, auth.CompanyPrincipal(c.Company.ID), UpdateChatbotInput{Slug: strPtr("acme")})
	require.NoError(t, err)
	_, err = h.public.Info(ctx, "acme")
	requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, "Chatbot not found or not published", apperr.PublicDetail(err))

	_, err = h.public.Send(ctx, "acme", PublicSendInput{Message: "hi"})
	requireKind(t, err, apperr.KindNotFound)

	h.publish(t, c.Company.ID, "acme")
	info, err := h.public.Info(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, c.Company.ID, info.CompanyID)
	assert.Equal(t, "Acme Helper", info.Title)
	assert.Equal(t, "https://acme.chatelio.test", info.URL)
}

func TestPublic_SendCreatesAndReusesGuestSession(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")
	h.publish(t, c.Company.ID, "acme")

	first, err := h.public.Send(ctx, "acme", PublicSendInput{Message: "hi", IP: "10.0.0.9"})
	require.NoError(t, err)
	events := collect(t, first.Turn)
	require.NotEmpty(t, events)
	start := events[0]
	assert.Equal(t, EventStart, start.Type)
	assert.Equal(t, first.Session.ID.String(), start.SessionID)
	require.NotEmpty(t, start.AccessToken)

	// The token in the start event authenticates as that guest.
	p, err := h.identity.Authenticate(ctx, start.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.KindGuest, p.Kind)
	assert.Equal(t, first.Session.ID, p.SubjectID)

	sid := first.Session.ID
	chatID := first.ChatID
	second, err := h.public.Send(ctx, "acme", PublicSendInput{SessionID: &sid, ChatID: &chatID, Message: "again"})
	require.NoError(t, err)
	collect(t, second.Turn)
	assert.Equal(t, sid, second.Session.ID)
	assert.Equal(t, chatID, second.ChatID)

	hist, err := h.chat.History(ctx, p, chatID)
	require.NoError(t, err)
	assert.Len(t, hist.Messages, 4)
}

func TestPublic_ForeignSessionGetsFreshOne(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	a := h.company(t, "a@acme.test")
	b := h.company(t, "b@acme.test")
	h.publish(t, a.Company.ID, "alpha")
	h.publish(t, b.Company.ID, "bravo")
	bp, _ := h.guest(t, b.Company.ID)

	sid := bp.SubjectID
	res, err := h.public.Send(ctx, "alpha", PublicSendInput{SessionID: &sid, Message: "hi"})
	require.NoError(t, err)
	collect(t, res.Turn)
	assert.NotEqual(t, sid, res.Session.ID)
	assert.Equal(t, a.Company.ID, res.Session.CompanyID)
}

func TestPublic_InvalidInputCreatesNoSession(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")
	h.publish(t, c.Company.ID, "acme")

	_, err := h.public.Send(ctx, "acme", PublicSendInput{Message: "   "})
	requireKind(t, err, apperr.KindValidation)
	_, err = h.public.Send(ctx, "acme", PublicSendInput{Message: "hi", Model: "Claude"})
	requireKind(t, err, apperr.KindValidation)

	now := h.clock.Now()
	counts, err := memory.NewAnalyticsStore(h.db).Counts(ctx, c.Company.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, counts.GuestSessions)
	assert.Zero(t, h.gen.callCount())
}
