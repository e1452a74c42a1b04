package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/apperr"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/objectstore"
	"github.com/lalith-99/chatelio/internal/repository"
	"github.com/lalith-99/chatelio/internal/vectorstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultKnowledgeBaseName = "Knowledge Base"
	clearConcurrency         = 4
)

// KnowledgeService manages the single knowledge base of each company and
// keeps document metadata in step with the vector store.
//
// Every method takes the company id explicitly and every vector store call
// uses that id; callers pass the id of the authenticated principal.
type KnowledgeService struct {
	kbs        repository.KnowledgeBaseRepository
	vectors    vectorstore.Store
	archive    objectstore.Archive
	maxBytes   int64
	retrievalK int
	logger     *zap.Logger
}

// NewKnowledgeService accepts a nil archive when raw uploads are not kept.
func NewKnowledgeService(
	kbs repository.KnowledgeBaseRepository,
	vectors vectorstore.Store,
	archive objectstore.Archive,
	maxBytes int64,
	retrievalK int,
	logger *zap.Logger,
) *KnowledgeService {
	return &KnowledgeService{
		kbs:        kbs,
		vectors:    vectors,
		archive:    archive,
		maxBytes:   maxBytes,
		retrievalK: retrievalK,
		logger:     logger,
	}
}

func (s *KnowledgeService) MaxUploadBytes() int64 { return s.maxBytes }

// Setup is idempotent.
func (s *KnowledgeService) Setup(ctx context.Context, companyID uuid.UUID) (*models.KnowledgeBase, error) {
	kb, err := s.kbs.GetOrCreate(ctx, companyID, defaultKnowledgeBaseName, "")
	if err != nil {
		return nil, apperr.Internal("set up knowledge base", err)
	}
	if err := s.vectors.EnsureNamespace(ctx, companyID); err != nil {
		return nil, apperr.Upstream("Failed to initialize knowledge base storage", err)
	}
	return kb, nil
}

func (s *KnowledgeService) UploadText(ctx context.Context, companyID uuid.UUID, filename, text string) (*models.Document, error) {
	if filename == "" {
		filename = "text-input.txt"
	}
	return s.ingest(ctx, companyID, filename, "text/plain", []byte(text))
}

// UploadFile accepts only UTF-8 text.
func (s *KnowledgeService) UploadFile(ctx context.Context, companyID uuid.UUID, filename, contentType string, data []byte) (*models.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, apperr.Validation("filename is required")
	}
	if contentType == "" {
		contentType = "text/plain"
	}
	return s.ingest(ctx, companyID, filename, contentType, data)
}

func (s *KnowledgeService) ingest(ctx context.Context, companyID uuid.UUID, filename, contentType string, data []byte) (*models.Document, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.PayloadTooLarge("File too large")
	}
	if !utf8.Valid(data) {
		return nil, apperr.InvalidEncoding("File must be valid UTF-8 text")
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("Document is empty")
	}

	kb, err := s.Setup(ctx, companyID)
	if err != nil {
		return nil, err
	}

	doc, created, err := s.kbs.UpsertDocument(ctx, companyID, kb.ID, filename, contentType, int64(len(data)))
	if err != nil {
		return nil, apperr.Internal("save document", err)
	}

	log := s.logger.With(
		zap.String("company_id", companyID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", filename),
		zap.Bool("replaced", !created),
	)

	storageKey := ""
	if s.archive != nil {
		key := objectstore.Key(companyID, doc.ID, filename)
		if err := s.archive.Put(ctx, key, data, contentType); err != nil {
			log.Warn("archive upload failed, continuing without raw copy", zap.Error(err))
		} else {
			storageKey = key
		}
	}

	if err := s.vectors.Put(ctx, companyID, doc.ID, text); err != nil {
		log.Error("vector store write failed", zap.Error(err))
		if serr := s.kbs.SetDocumentStatus(ctx, companyID, doc.ID, models.EmbeddingsFailed, storageKey); serr != nil {
			log.Error("mark document failed", zap.Error(serr))
		}
		return nil, apperr.Upstream("Failed to process document", err)
	}

	if err := s.kbs.SetDocumentStatus(ctx, companyID, doc.ID, models.EmbeddingsCompleted, storageKey); err != nil {
		return nil, apperr.Internal("mark document completed", err)
	}
	doc.EmbeddingsStatus = models.EmbeddingsCompleted
	if storageKey != "" {
		doc.StorageKey = storageKey
	}
	log.Info("document indexed", zap.Int64("bytes", doc.FileSize))
	return doc, nil
}

func (s *KnowledgeService) List(ctx context.Context, companyID uuid.UUID) ([]models.Document, error) {
	docs, err := s.kbs.ListDocuments(ctx, companyID)
	if err != nil {
		return nil, apperr.Internal("list documents", err)
	}
	return docs, nil
}

type KnowledgeBaseStatus struct {
	KnowledgeBase *models.KnowledgeBase `json:"knowledge_base"`
	Documents     []models.Document     `json:"documents"`
}

// Status returns a nil KnowledgeBase when Setup was never called.
func (s *KnowledgeService) Status(ctx context.Context, companyID uuid.UUID) (*KnowledgeBaseStatus, error) {
	kb, err := s.kbs.Get(ctx, companyID)
	if err != nil {
		return nil, apperr.Internal("get knowledge base", err)
	}
	docs, err := s.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &KnowledgeBaseStatus{KnowledgeBase: kb, Documents: docs}, nil
}

// Delete removes vectors first; if that fails the metadata row stays so
// the document is still listed and can be retried.
func (s *KnowledgeService) Delete(ctx context.Context, companyID, docID uuid.UUID) error {
	doc, err := s.kbs.GetDocument(ctx, companyID, docID)
	if err != nil {
		return apperr.Internal("get document", err)
	}
	if doc == nil {
		return apperr.NotFound("Document not found")
	}

	if err := s.vectors.Delete(ctx, companyID, doc.ID); err != nil {
		s.logger.Error("vector delete failed",
			zap.String("company_id", companyID.String()),
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return apperr.Upstream("Failed to delete document", err)
	}
	if s.archive != nil && doc.StorageKey != "" {
		if err := s.archive.Delete(ctx, doc.StorageKey); err != nil {
			s.logger.Warn("archive delete failed", zap.String("key", doc.StorageKey), zap.Error(err))
		}
	}
	if err := s.kbs.DeleteDocument(ctx, companyID, doc.ID); err != nil {
		return apperr.Internal("delete document", err)
	}
	return nil
}

// Clear deletes every document of the company and drops its namespace.
// It returns the number of documents removed.
func (s *KnowledgeService) Clear(ctx context.Context, companyID uuid.UUID) (int, error) {
	docs, err := s.List(ctx, companyID)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clearConcurrency)
	for _, d := range docs {
		g.Go(func() error {
			return s.Delete(gctx, companyID, d.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.vectors.DeleteNamespace(ctx, companyID); err != nil {
		return 0, apperr.Upstream("Failed to clear knowledge base", err)
	}
	if err := s.kbs.ResetFileCount(ctx, companyID); err != nil {
		return 0, apperr.Internal("reset file count", err)
	}
	return len(docs), nil
}

// Retrieve returns up to k snippets from the company's namespace. k <= 0
// uses the configured default.
func (s *KnowledgeService) Retrieve(ctx context.Context, companyID uuid.UUID, query string, k int) ([]vectorstore.Snippet, error) {
	if k <= 0 {
		k = s.retrievalK
	}
	snippets, err := s.vectors.Query(ctx, companyID, query, k)
	if err != nil {
		return nil, apperr.Upstream("Failed to search knowledge base", err)
	}
	return snippets, nil
}
