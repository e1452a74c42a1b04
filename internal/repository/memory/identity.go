package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type UserStore struct{ db *DB }

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(ctx context.Context, companyID uuid.UUID, email, name, passwordHash string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.insertUserLocked(companyID, email, name, passwordHash)
}

func (db *DB) insertUserLocked(companyID uuid.UUID, email, name, passwordHash string) (*models.User, error) {
	for _, u := range db.users {
		if u.CompanyID == companyID && strings.EqualFold(u.Email, email) {
			return nil, repository.ErrDuplicate
		}
	}
	u := &models.User{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    db.now(),
	}
	db.users[u.ID] = u
	out := *u
	return &out, nil
}

func (s *UserStore) GetByID(ctx context.Context, companyID, userID uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[userID]
	if !ok || u.CompanyID != companyID {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, companyID uuid.UUID, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if u.CompanyID == companyID && strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

type GuestSessionStore struct{ db *DB }

func NewGuestSessionStore(db *DB) *GuestSessionStore { return &GuestSessionStore{db: db} }

func (s *GuestSessionStore) Create(ctx context.Context, companyID uuid.UUID, ip, userAgent string, createdAt, expiresAt time.Time) (*models.GuestSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g := &models.GuestSession{
		ID:        uuid.New(),
		CompanyID: companyID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	s.db.sessions[g.ID] = g
	out := *g
	return &out, nil
}

func (s *GuestSessionStore) GetByID(ctx context.Context, companyID, sessionID uuid.UUID) (*models.GuestSession, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	g, ok := s.db.sessions[sessionID]
	if !ok || g.CompanyID != companyID {
		return nil, nil
	}
	out := *g
	return &out, nil
}

func (s *GuestSessionStore) ConvertToUser(ctx context.Context, companyID, sessionID uuid.UUID, email, name, passwordHash string, now time.Time) (*models.User, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g, ok := s.db.sessions[sessionID]
	if !ok || g.CompanyID != companyID || !g.Active(now) {
		return nil, 0, repository.ErrSessionUnavailable
	}
	u, err := s.db.insertUserLocked(companyID, email, name, passwordHash)
	if err != nil {
		return nil, 0, err
	}

	from := models.GuestOwner(sessionID)
	to := models.UserOwner(u.ID)
	moved := 0
	for _, row := range s.db.chats {
		if row.chat.CompanyID == companyID && row.chat.Owner == from {
			row.chat.Owner = to
			moved++
		}
	}
	g.Converted = true
	return u, moved, nil
}

var _ repository.UserRepository = (*UserStore)(nil)

var _ repository.GuestSessionRepository = (*GuestSessionStore)(nil)
