package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

type KnowledgeBaseStore struct{ db *DB }

func NewKnowledgeBaseStore(db *DB) *KnowledgeBaseStore { return &KnowledgeBaseStore{db: db} }

func (s *KnowledgeBaseStore) GetOrCreate(ctx context.Context, companyID uuid.UUID, name, description string) (*models.KnowledgeBase, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	kb, ok := s.db.kbs[companyID]
	if !ok {
		now := s.db.now()
		kb = &models.KnowledgeBase{
			ID:          uuid.New(),
			CompanyID:   companyID,
			Name:        name,
			Description: description,
			Status:      models.KnowledgeBaseReady,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.db.kbs[companyID] = kb
	}
	out := *kb
	return &out, nil
}

func (s *KnowledgeBaseStore) Get(ctx context.Context, companyID uuid.UUID) (*models.KnowledgeBase, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	kb, ok := s.db.kbs[companyID]
	if !ok {
		return nil, nil
	}
	out := *kb
	return &out, nil
}

func (s *KnowledgeBaseStore) UpsertDocument(ctx context.Context, companyID, kbID uuid.UUID, filename, contentType string, size int64) (*models.Document, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	kb := s.db.kbs[companyID]
	for _, d := range s.db.docs {
		if d.CompanyID == companyID && d.Filename == filename {
			d.ContentType = contentType
			d.FileSize = size
			d.EmbeddingsStatus = models.EmbeddingsProcessing
			d.UpdatedAt = now
			if kb != nil {
				kb.UpdatedAt = now
			}
			out := *d
			return &out, false, nil
		}
	}

	d := &models.Document{
		ID:               uuid.New(),
		KnowledgeBaseID:  kbID,
		CompanyID:        companyID,
		Filename:         filename,
		ContentType:      contentType,
		FileSize:         size,
		EmbeddingsStatus: models.EmbeddingsProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.db.docs[d.ID] = d
	if kb != nil {
		kb.FileCount++
		kb.UpdatedAt = now
	}
	out := *d
	return &out, true, nil
}

func (s *KnowledgeBaseStore) SetDocumentStatus(ctx context.Context, companyID, docID uuid.UUID, status models.EmbeddingsStatus, storageKey string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if d, ok := s.db.docs[docID]; ok && d.CompanyID == companyID {
		d.EmbeddingsStatus = status
		if storageKey != "" {
			d.StorageKey = storageKey
		}
		d.UpdatedAt = s.db.now()
	}
	return nil
}

func (s *KnowledgeBaseStore) GetDocument(ctx context.Context, companyID, docID uuid.UUID) (*models.Document, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	d, ok := s.db.docs[docID]
	if !ok || d.CompanyID != companyID {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (s *KnowledgeBaseStore) ListDocuments(ctx context.Context, companyID uuid.UUID) ([]models.Document, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	docs := make([]models.Document, 0)
	for _, d := range s.db.docs {
		if d.CompanyID == companyID {
			docs = append(docs, *d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *KnowledgeBaseStore) DeleteDocument(ctx context.Context, companyID, docID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	d, ok := s.db.docs[docID]
	if !ok || d.CompanyID != companyID {
		return nil
	}
	delete(s.db.docs, docID)
	if kb := s.db.kbs[companyID]; kb != nil && kb.FileCount > 0 {
		kb.FileCount--
		kb.UpdatedAt = s.db.now()
	}
	return nil
}

func (s *KnowledgeBaseStore) ResetFileCount(ctx context.Context, companyID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if kb := s.db.kbs[companyID]; kb != nil {
		kb.FileCount = 0
		kb.UpdatedAt = s.db.now()
	}
	return nil
}

var _ repository.KnowledgeBaseRepository = (*KnowledgeBaseStore)(nil)
