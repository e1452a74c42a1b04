package service

import (
	"context"
	"math"
	"time"

	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/auth"
	"github.com/lalith-99/chatelio/internal/repository"
	"go.uber.org/zap"
)

const analyticsWindow = 7 * 24 * time.Hour

type Metric struct {
	Current       int     `json:"current"`
	Previous      int     `json:"previous"`
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"`
}

type Overview struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Messages       Metric    `json:"messages"`
	Users          Metric    `json:"users"`
	Chats          Metric    `json:"chats"`
	KnowledgeBases Metric    `json:"knowledge_bases"`
	GuestSessions  Metric    `json:"guest_sessions"`
}

// AnalyticsService compares the last seven days with the seven before.
type AnalyticsService struct {
	repo   repository.AnalyticsRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewAnalyticsService(repo repository.AnalyticsRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, now: time.Now, logger: logger}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

func (s *AnalyticsService) Overview(ctx context.Context, p auth.Principal) (*Overview, error) {
	if err := RequireCompany(p); err != nil {
		return nil, err
	}
	to := s.now()
	mid := to.Add(-analyticsWindow)
	from := mid.Add(-analyticsWindow)

	cur, err := s.repo.Counts(ctx, p.CompanyID, mid, to)
	if err != nil {
		return nil, apperr.Internal("count current window", err)
	}
	prev, err := s.repo.Counts(ctx, p.CompanyID, from, mid)
	if err != nil {
		return nil, apperr.Internal("count previous window", err)
	}

	return &Overview{
		From:           mid,
		To:             to,
		Messages:       metric(cur.Messages, prev.Messages),
		Users:          metric(cur.Users, prev.Users),
		Chats:          metric(cur.Chats, prev.Chats),
		KnowledgeBases: metric(cur.KnowledgeBases, prev.KnowledgeBases),
		GuestSessions:  metric(cur.GuestSessions, prev.GuestSessions),
	}, nil
}

func metric(cur, prev int) Metric {
	m := Metric{Current: cur, Previous: prev, Trend: "flat"}
	switch {
	case prev == 0 && cur > 0:
		m.ChangePercent = 100
	case prev > 0:
		m.ChangePercent = math.Round(float64(cur-prev)/float64(prev)*1000) / 10
	}
	switch {
	case cur > prev:
		m.Trend = "up"
	case cur < prev:
		m.Trend = "down"
	}
	return m
}
