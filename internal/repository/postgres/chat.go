package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	var (
		c                 models.Chat
		userID, sessionID uuid.NullUUID
	)
	if err := row.Scan(&c.ID, &c.CompanyID, &userID, &sessionID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	owner, err := models.OwnerFromColumns(userID, sessionID)
	if err != nil {
		return nil, err
	}
	c.Owner = owner
	return &c, nil
}

func (s *ChatStore) Create(ctx context.Context, companyID uuid.UUID, owner models.Owner, title string) (*models.Chat, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("insert chat: invalid owner %s", owner)
	}
	query := `
		INSERT INTO chats (company_id, user_id, session_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, company_id, user_id, session_id, title, created_at, updated_at`

	c, err := scanChat(s.pool.QueryRow(ctx, query, companyID, owner.UserID(), owner.SessionID(), title))
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}
	return c, nil
}

func (s *ChatStore) GetByID(ctx context.Context, companyID, chatID uuid.UUID) (*models.Chat, error) {
	query := `
		SELECT id, company_id, user_id, session_id, title, created_at, updated_at
		FROM chats
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted`

	c, err := scanChat(s.pool.QueryRow(ctx, query, chatID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

func (s *ChatStore) ListByOwner(ctx context.Context, companyID uuid.UUID, owner models.Owner) ([]models.Chat, error) {
	var column string
	switch owner.Kind() {
	case models.OwnerUser:
		column = "user_id"
	case models.OwnerGuest:
		column = "session_id"
	default:
		return make([]models.Chat, 0), nil
	}

	query := `
		SELECT id, company_id, user_id, session_id, title, created_at, updated_at
		FROM chats
		WHERE company_id = $1 AND ` + column + ` = $2 AND NOT is_deleted
		ORDER BY updated_at DESC`

	rows, err := s.pool.Query(ctx, query, companyID, owner.ID())
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

func (s *ChatStore) Rename(ctx context.Context, companyID, chatID uuid.UUID, title string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats SET title = $3, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted`, chatID, companyID, title)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}
	return nil
}

func (s *ChatStore) SoftDelete(ctx context.Context, companyID, chatID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats SET is_deleted = true, updated_at = now()
		WHERE id = $1 AND company_id = $2`, chatID, companyID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

var _ repository.ChatRepository = (*ChatStore)(nil)
