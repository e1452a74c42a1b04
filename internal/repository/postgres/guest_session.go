package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type GuestSessionStore struct {
	pool *pgxpool.Pool
}

func NewGuestSessionStore(pool *pgxpool.Pool) *GuestSessionStore {
	return &GuestSessionStore{pool: pool}
}

func (s *GuestSessionStore) Create(ctx context.Context, companyID uuid.UUID, ip, userAgent string, createdAt, expiresAt time.Time) (*models.GuestSession, error) {
	query := `
		INSERT INTO guest_sessions (company_id, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, company_id, ip_address, user_agent, created_at, expires_at, converted`

	var g models.GuestSession
	err := s.pool.QueryRow(ctx, query, companyID, ip, userAgent, createdAt, expiresAt).Scan(
		&g.ID, &g.CompanyID, &g.IPAddress, &g.UserAgent, &g.CreatedAt, &g.ExpiresAt, &g.Converted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert guest session: %w", err)
	}
	return &g, nil
}

func (s *GuestSessionStore) GetByID(ctx context.Context, companyID, sessionID uuid.UUID) (*models.GuestSession, error) {
	query := `
		SELECT id, company_id, ip_address, user_agent, created_at, expires_at, converted
		FROM guest_sessions
		WHERE id = $1 AND company_id = $2`

	var g models.GuestSession
	err := s.pool.QueryRow(ctx, query, sessionID, companyID).Scan(
		&g.ID, &g.CompanyID, &g.IPAddress, &g.UserAgent, &g.CreatedAt, &g.ExpiresAt, &g.Converted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guest session: %w", err)
	}
	return &g, nil
}

// ConvertToUser locks the session row so two concurrent conversions of the
// same session serialize; the loser sees converted = true and fails.
func (s *GuestSessionStore) ConvertToUser(ctx context.Context, companyID, sessionID uuid.UUID, email, name, passwordHash string, now time.Time) (*models.User, int, error) {
	var (
		user  *models.User
		moved int
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			expiresAt time.Time
			converted bool
		)
		err := tx.QueryRow(ctx, `
			SELECT expires_at, converted
			FROM guest_sessions
			WHERE id = $1 AND company_id = $2
			FOR UPDATE`, sessionID, companyID).Scan(&expiresAt, &converted)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrSessionUnavailable
			}
			return fmt.Errorf("lock guest session: %w", err)
		}
		if converted || !now.Before(expiresAt) {
			return repository.ErrSessionUnavailable
		}

		user, err = insertUser(ctx, tx, companyID, email, name, passwordHash)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE chats
			SET user_id = $1, session_id = NULL, updated_at = now()
			WHERE company_id = $2 AND session_id = $3`, user.ID, companyID, sessionID)
		if err != nil {
			return fmt.Errorf("move guest chats: %w", err)
		}
		moved = int(tag.RowsAffected())

		if _, err := tx.Exec(ctx, `UPDATE guest_sessions SET converted = true WHERE id = $1`, sessionID); err != nil {
			return fmt.Errorf("mark session converted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return user, moved, nil
}

var _ repository.GuestSessionRepository = (*GuestSessionStore)(nil)
