package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Append inserts the message and bumps the chat in one transaction. The
// bigserial id gives a total order within a chat.
func (s *MessageStore) Append(ctx context.Context, chatID uuid.UUID, role models.MessageRole, content string, incomplete bool) (*models.Message, error) {
	var msg models.Message
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO messages (chat_id, role, content, incomplete, created_at)
			VALUES ($1, $2, $3, $4, now())
			RETURNING id, chat_id, role, content, incomplete, created_at`,
			chatID, string(role), content, incomplete,
		).Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Incomplete, &msg.Timestamp)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, chatID); err != nil {
			return fmt.Errorf("touch chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	return s.list(ctx, `
		SELECT id, chat_id, role, content, incomplete, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY id ASC`, chatID)
}

// Recent takes the newest rows and flips them back into ascending order.
func (s *MessageStore) Recent(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	return s.list(ctx, `
		SELECT id, chat_id, role, content, incomplete, created_at FROM (
			SELECT id, chat_id, role, content, incomplete, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC`, chatID, limit)
}

func (s *MessageStore) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Content,
			&msg.Incomplete,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

var _ repository.MessageRepository = (*MessageStore)(nil)
