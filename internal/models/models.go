package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant. Every user, guest session, chat, message and
// knowledge base belongs to exactly one company.
type Company struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Slug               *string    `json:"slug"`
	IsPublished        bool       `json:"is_published"`
	PublishedAt        *time.Time `json:"published_at"`
	ChatbotTitle       string     `json:"chatbot_title"`
	ChatbotDescription string     `json:"chatbot_description"`
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
}

// SlugValue returns the slug or "" when none is set.
func (c *Company) SlugValue() string {
	if c.Slug == nil {
		return ""
	}
	return *c.Slug
}

// User is a registered end user inside one company.
// Email is unique per company, not globally.
type User struct {
	ID           uuid.UUID `json:"id"`
	CompanyID    uuid.UUID `json:"company_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuestSession is an anonymous visitor identity bound to a company.
type GuestSession struct {
	ID        uuid.UUID `json:"session_id"`
	CompanyID uuid.UUID `json:"company_id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Converted bool      `json:"converted"`
}

// Active reports whether the session can still be used at time now.
func (g *GuestSession) Active(now time.Time) bool {
	return !g.Converted && now.Before(g.ExpiresAt)
}

type MessageRole string

const (
	RoleHuman MessageRole = "human"
	RoleAI    MessageRole = "ai"
)

// Message is append-only. ID is a monotonic sequence; history is ordered by it.
type Message struct {
	ID         int64       `json:"id"`
	ChatID     uuid.UUID   `json:"chat_id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	Incomplete bool        `json:"incomplete,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type Chat struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Owner     Owner     `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type KnowledgeBaseStatus string

const KnowledgeBaseReady KnowledgeBaseStatus = "ready"

// KnowledgeBase is the single per-company container of documents.
type KnowledgeBase struct {
	ID          uuid.UUID           `json:"id"`
	CompanyID   uuid.UUID           `json:"company_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      KnowledgeBaseStatus `json:"status"`
	FileCount   int                 `json:"file_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type EmbeddingsStatus string

const (
	EmbeddingsPending    EmbeddingsStatus = "pending"
	EmbeddingsProcessing EmbeddingsStatus = "processing"
	EmbeddingsCompleted  EmbeddingsStatus = "completed"
	EmbeddingsFailed     EmbeddingsStatus = "failed"
)

// Document is metadata for one uploaded text. The text itself lives in the
// vector store (chunked) and, when configured, in object storage.
type Document struct {
	ID               uuid.UUID        `json:"id"`
	KnowledgeBaseID  uuid.UUID        `json:"knowledge_base_id"`
	CompanyID        uuid.UUID        `json:"company_id"`
	Filename         string           `json:"filename"`
	ContentType      string           `json:"content_type"`
	FileSize         int64            `json:"file_size"`
	EmbeddingsStatus EmbeddingsStatus `json:"embeddings_status"`
	StorageKey       string           `json:"storage_key,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ActivityCounts is the number of rows created for one company in a window.
type ActivityCounts struct {
	Messages       int `json:"messages"`
	Users          int `json:"users"`
	Chats          int `json:"chats"`
	KnowledgeBases int `json:"knowledge_bases"`
	GuestSessions  int `json:"guest_sessions"`
}
