package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type CompanyStore struct{ db *DB }

func NewCompanyStore(db *DB) *CompanyStore { return &CompanyStore{db: db} }

func (s *CompanyStore) Create(ctx context.Context, name, email, passwordHash string) (*models.Company, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, c := range s.db.companies {
		if strings.EqualFold(c.Email, email) {
			return nil, repository.ErrDuplicate
		}
	}
	c := &models.Company{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Plan:         "free",
		Status:       "active",
		CreatedAt:    s.db.now(),
	}
	s.db.companies[c.ID] = c
	out := *c
	return &out, nil
}

func (s *CompanyStore) GetByID(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.companies[companyID]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (s *CompanyStore) GetByEmail(ctx context.Context, email string) (*models.Company, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, c := range s.db.companies {
		if strings.EqualFold(c.Email, email) {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, c := range s.db.companies {
		if c.Slug != nil && *c.Slug == slug {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *CompanyStore) UpdateChatbot(ctx context.Context, companyID uuid.UUID, slug *string, title, description string) (*models.Company, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.companies[companyID]
	if !ok {
		return nil, nil
	}
	if slug != nil {
		for id, other := range s.db.companies {
			if id != companyID && other.Slug != nil && *other.Slug == *slug {
				return nil, repository.ErrDuplicate
			}
		}
		v := *slug
		c.Slug = &v
	}
	c.ChatbotTitle = title
	c.ChatbotDescription = description
	out := *c
	return &out, nil
}

func (s *CompanyStore) SetPublished(ctx context.Context, companyID uuid.UUID, published bool, at time.Time) (*models.Company, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.companies[companyID]
	if !ok {
		return nil, nil
	}
	c.IsPublished = published
	if published {
		t := at
		c.PublishedAt = &t
	} else {
		c.PublishedAt = nil
	}
	out := *c
	return &out, nil
}

var _ repository.CompanyRepository = (*CompanyStore)(nil)
