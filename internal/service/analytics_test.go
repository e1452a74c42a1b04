package service

import (
	"context"
	"testing"
	"time"

	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric(t *testing.T) {
	assert.Equal(t, Metric{Current: 0, Previous: 0, Trend: "flat"}, metric(0, 0))
	assert.Equal(t, Metric{Current: 3, Previous: 0, ChangePercent: 100, Trend: "up"}, metric(3, 0))
	assert.Equal(t, Metric{Current: 1, Previous: 4, ChangePercent: -75, Trend: "down"}, metric(1, 4))
	assert.Equal(t, Metric{Current: 4, Previous: 3, ChangePercent: 33.3, Trend: "up"}, metric(4, 3))
}

func TestAnalytics_Overview(t *testing.T) {
	h := newHarness(t, config.PartialReplyDiscard)
	ctx := context.Background()
	c := h.company(t, "owner@acme.test")
	h.user(t, c.Company.ID, "early@example.test")

	h.clock.Advance(8 * 24 * time.Hour)
	h.user(t, c.Company.ID, "late1@example.test")
	up := h.user(t, c.Company.ID, "late2@example.test")
	h.guest(t, c.Company.ID)
	turn, err := h.chat.Send(ctx, up, SendInput{Message: "hi"})
	require.NoError(t, err)
	collect(t, turn)
	h.clock.Advance(time.Hour)

	ov, err := h.analytics.Overview(ctx, auth.CompanyPrincipal(c.Company.ID))
	require.NoError(t, err)
	assert.Equal(t, Metric{Current: 2, Previous: 1, ChangePercent: 100, Trend: "up"}, ov.Users)
	assert.Equal(t, 1, ov.GuestSessions.Current)
	assert.Equal(t, 1, ov.Chats.Current)
	assert.Equal(t, 2, ov.Messages.Current)
	assert.Equal(t, "flat", ov.KnowledgeBases.Trend)

	_, err = h.analytics.Overview(ctx, up)
	requireKind(t, err, apperr.KindForbidden)
}
