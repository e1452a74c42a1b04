package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
)

// Every tenant-owned lookup takes the company id and filters on it, so a
// guessed UUID from another company reads as "not found".
//
// Getters return nil, nil when the row does not exist. Lists return an
// empty slice, never nil.

var (
	// ErrDuplicate is returned when a unique constraint (company email,
	// company slug, user email within a company) would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrSessionUnavailable is returned by ConvertToUser when the guest
	// session is missing, expired or already converted.
	ErrSessionUnavailable = errors.New("guest session unavailable")
)

type CompanyRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.Company, error)
	GetByID(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	GetByEmail(ctx context.Context, email string) (*models.Company, error)
	// GetBySlug returns the company regardless of publish state.
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)
	UpdateChatbot(ctx context.Context, companyID uuid.UUID, slug *string, title, description string) (*models.Company, error)
	SetPublished(ctx context.Context, companyID uuid.UUID, published bool, at time.Time) (*models.Company, error)
}

type UserRepository interface {
	Create(ctx context.Context, companyID uuid.UUID, email, name, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, companyID, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, companyID uuid.UUID, email string) (*models.User, error)
}

type GuestSessionRepository interface {
	Create(ctx context.Context, companyID uuid.UUID, ip, userAgent string, createdAt, expiresAt time.Time) (*models.GuestSession, error)
	GetByID(ctx context.Context, companyID, sessionID uuid.UUID) (*models.GuestSession, error)

	// ConvertToUser runs as one atomic unit: it creates the user, moves
	// every chat owned by the session to that user and marks the session
	// converted. On any failure nothing changes. It returns the new user
	// and the number of chats moved.
	ConvertToUser(ctx context.Context, companyID, sessionID uuid.UUID, email, name, passwordHash string, now time.Time) (*models.User, int, error)
}

type ChatRepository interface {
	Create(ctx context.Context, companyID uuid.UUID, owner models.Owner, title string) (*models.Chat, error)
	// GetByID skips soft-deleted chats.
	GetByID(ctx context.Context, companyID, chatID uuid.UUID) (*models.Chat, error)
	// ListByOwner returns the owner's live chats, most recently updated first.
	ListByOwner(ctx context.Context, companyID uuid.UUID, owner models.Owner) ([]models.Chat, error)
	Rename(ctx context.Context, companyID, chatID uuid.UUID, title string) error
	SoftDelete(ctx context.Context, companyID, chatID uuid.UUID) error
}

type MessageRepository interface {
	// Append stores a message and bumps the chat's updated_at.
	Append(ctx context.Context, chatID uuid.UUID, role models.MessageRole, content string, incomplete bool) (*models.Message, error)
	// ListByChat returns the full history in insertion order.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
	// Recent returns up to limit latest messages, oldest first.
	Recent(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)
}

type KnowledgeBaseRepository interface {
	// GetOrCreate is idempotent: concurrent callers all observe the same row.
	GetOrCreate(ctx context.Context, companyID uuid.UUID, name, description string) (*models.KnowledgeBase, error)
	Get(ctx context.Context, companyID uuid.UUID) (*models.KnowledgeBase, error)

	// UpsertDocument creates a document in "processing" state (incrementing
	// file_count) or, when the filename already exists, resets that row to
	// "processing" with the new size. created reports which happened.
	UpsertDocument(ctx context.Context, companyID, kbID uuid.UUID, filename, contentType string, size int64) (doc *models.Document, created bool, err error)
	SetDocumentStatus(ctx context.Context, companyID, docID uuid.UUID, status models.EmbeddingsStatus, storageKey string) error
	GetDocument(ctx context.Context, companyID, docID uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, companyID uuid.UUID) ([]models.Document, error)
	// DeleteDocument removes the row and decrements file_count together.
	DeleteDocument(ctx context.Context, companyID, docID uuid.UUID) error
	ResetFileCount(ctx context.Context, companyID uuid.UUID) error
}

type AnalyticsRepository interface {
	// Counts returns rows created in [from, to) for one company.
	Counts(ctx context.Context, companyID uuid.UUID, from, to time.Time) (models.ActivityCounts, error)
}
