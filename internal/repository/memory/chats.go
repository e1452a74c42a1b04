package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type ChatStore struct{ db *DB }

func NewChatStore(db *DB) *ChatStore { return &ChatStore{db: db} }

func (s *ChatStore) Create(ctx context.Context, companyID uuid.UUID, owner models.Owner, title string) (*models.Chat, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("insert chat: invalid owner %s", owner)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	row := &chatRow{chat: models.Chat{
		ID:        uuid.New(),
		CompanyID: companyID,
		Owner:     owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.db.chats[row.chat.ID] = row
	out := row.chat
	return &out, nil
}

func (s *ChatStore) GetByID(ctx context.Context, companyID, chatID uuid.UUID) (*models.Chat, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row, ok := s.db.chats[chatID]
	if !ok || row.deleted || row.chat.CompanyID != companyID {
		return nil, nil
	}
	out := row.chat
	return &out, nil
}

func (s *ChatStore) ListByOwner(ctx context.Context, companyID uuid.UUID, owner models.Owner) ([]models.Chat, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	chats := make([]models.Chat, 0)
	for _, row := range s.db.chats {
		if !row.deleted && row.chat.CompanyID == companyID && row.chat.Owner == owner {
			chats = append(chats, row.chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (s *ChatStore) Rename(ctx context.Context, companyID, chatID uuid.UUID, title string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if row, ok := s.db.chats[chatID]; ok && !row.deleted && row.chat.CompanyID == companyID {
		row.chat.Title = title
		row.chat.UpdatedAt = s.db.now()
	}
	return nil
}

func (s *ChatStore) SoftDelete(ctx context.Context, companyID, chatID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if row, ok := s.db.chats[chatID]; ok && row.chat.CompanyID == companyID {
		row.deleted = true
	}
	return nil
}

type MessageStore struct{ db *DB }

func NewMessageStore(db *DB) *MessageStore { return &MessageStore{db: db} }

func (s *MessageStore) Append(ctx context.Context, chatID uuid.UUID, role models.MessageRole, content string, incomplete bool) (*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row, ok := s.db.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("insert message: chat %s does not exist", chatID)
	}
	s.db.msgSeq++
	now := s.db.now()
	msg := models.Message{
		ID:         s.db.msgSeq,
		ChatID:     chatID,
		Role:       role,
		Content:    content,
		Incomplete: incomplete,
		Timestamp:  now,
	}
	s.db.messages[chatID] = append(s.db.messages[chatID], msg)
	row.chat.UpdatedAt = now
	return &msg, nil
}

func (s *MessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.Message, len(s.db.messages[chatID]))
	copy(out, s.db.messages[chatID])
	return out, nil
}

func (s *MessageStore) Recent(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	all := s.db.messages[chatID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]models.Message, len(all))
	copy(out, all)
	return out, nil
}

var _ repository.ChatRepository = (*ChatStore)(nil)

var _ repository.MessageRepository = (*MessageStore)(nil)
