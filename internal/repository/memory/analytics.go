package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type AnalyticsStore struct{ db *DB }

func NewAnalyticsStore(db *DB) *AnalyticsStore { return &AnalyticsStore{db: db} }

func (s *AnalyticsStore) Counts(ctx context.Context, companyID uuid.UUID, from, to time.Time) (models.ActivityCounts, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	var out models.ActivityCounts
	for _, u := range s.db.users {
		if u.CompanyID == companyID && in(u.CreatedAt) {
			out.Users++
		}
	}
	for _, g := range s.db.sessions {
		if g.CompanyID == companyID && in(g.CreatedAt) {
			out.GuestSessions++
		}
	}
	for id, row := range s.db.chats {
		if row.chat.CompanyID != companyID {
			continue
		}
		if in(row.chat.CreatedAt) {
			out.Chats++
		}
		for _, m := range s.db.messages[id] {
			if in(m.Timestamp) {
				out.Messages++
			}
		}
	}
	if kb, ok := s.db.kbs[companyID]; ok && in(kb.CreatedAt) {
		out.KnowledgeBases++
	}
	return out, nil
}

var _ repository.AnalyticsRepository = (*AnalyticsStore)(nil)
