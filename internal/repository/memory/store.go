// Package memory holds process-local implementations of the repository
// interfaces. All stores share one DB so multi-entity operations such as
// guest conversion stay atomic under a single lock.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
)

type chatRow struct {
	chat    models.Chat
	deleted bool
}

type DB struct {
	mu  sync.RWMutex
	now func() time.Time

	companies map[uuid.UUID]*models.Company
	users     map[uuid.UUID]*models.User
	sessions  map[uuid.UUID]*models.GuestSession
	chats     map[uuid.UUID]*chatRow
	messages  map[uuid.UUID][]models.Message
	msgSeq    int64
	kbs       map[uuid.UUID]*models.KnowledgeBase // keyed by company id
	docs      map[uuid.UUID]*models.Document
	refresh   map[string]time.Time // jti -> expiry
}

func NewDB() *DB {
	return &DB{
		now:       time.Now,
		companies: make(map[uuid.UUID]*models.Company),
		users:     make(map[uuid.UUID]*models.User),
		sessions:  make(map[uuid.UUID]*models.GuestSession),
		chats:     make(map[uuid.UUID]*chatRow),
		messages:  make(map[uuid.UUID][]models.Message),
		kbs:       make(map[uuid.UUID]*models.KnowledgeBase),
		docs:      make(map[uuid.UUID]*models.Document),
		refresh:   make(map[string]time.Time),
	}
}

// WithClock sets the time source used for created/updated timestamps.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}
