package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type AnalyticsStore struct {
	pool *pgxpool.Pool
}

func NewAnalyticsStore(pool *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{pool: pool}
}

func (s *AnalyticsStore) Counts(ctx context.Context, companyID uuid.UUID, from, to time.Time) (models.ActivityCounts, error) {
	query := `
		SELECT
			(SELECT count(*) FROM messages m JOIN chats c ON c.id = m.chat_id
			  WHERE c.company_id = $1 AND m.created_at >= $2 AND m.created_at < $3),
			(SELECT count(*) FROM users WHERE company_id = $1 AND created_at >= $2 AND created_at < $3),
			(SELECT count(*) FROM chats WHERE company_id = $1 AND created_at >= $2 AND created_at < $3),
			(SELECT count(*) FROM knowledge_bases WHERE company_id = $1 AND created_at >= $2 AND created_at < $3),
			(SELECT count(*) FROM guest_sessions WHERE company_id = $1 AND created_at >= $2 AND created_at < $3)`

	var out models.ActivityCounts
	err := s.pool.QueryRow(ctx, query, companyID, from, to).Scan(
		&out.Messages,
		&out.Users,
		&out.Chats,
		&out.KnowledgeBases,
		&out.GuestSessions,
	)
	if err != nil {
		return models.ActivityCounts{}, fmt.Errorf("count activity: %w", err)
	}
	return out, nil
}

var _ repository.AnalyticsRepository = (*AnalyticsStore)(nil)
