package memory

import (
	"context"
	"time"

	"github.com/lalith-99/chatelio/internal/auth"
)

// RefreshStore is the in-process counterpart of redisstore.RefreshStore.
type RefreshStore struct{ db *DB }

func NewRefreshStore(db *DB) *RefreshStore { return &RefreshStore{db: db} }

func (s *RefreshStore) Save(ctx context.Context, jti, subject string, ttl time.Duration) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// Unconsumed tokens are never read again once expired.
	now := s.db.now()
	for id, exp := range s.db.refresh {
		if !now.Before(exp) {
			delete(s.db.refresh, id)
		}
	}
	s.db.refresh[jti] = now.Add(ttl)
	return nil
}

func (s *RefreshStore) Consume(ctx context.Context, jti string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	exp, ok := s.db.refresh[jti]
	if !ok {
		return false, nil
	}
	delete(s.db.refresh, jti)
	return s.db.now().Before(exp), nil
}

var _ auth.RefreshStore = (*RefreshStore)(nil)
