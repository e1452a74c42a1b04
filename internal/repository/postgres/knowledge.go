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

const documentColumns = `id, knowledge_base_id, company_id, filename, content_type, file_size,
	embeddings_status, storage_key, created_at, updated_at`

type KnowledgeBaseStore struct {
	pool *pgxpool.Pool
}

func NewKnowledgeBaseStore(pool *pgxpool.Pool) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{pool: pool}
}

func scanKnowledgeBase(row pgx.Row) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	err := row.Scan(&kb.ID, &kb.CompanyID, &kb.Name, &kb.Description, &kb.Status, &kb.FileCount, &kb.CreatedAt, &kb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.KnowledgeBaseID,
		&d.CompanyID,
		&d.Filename,
		&d.ContentType,
		&d.FileSize,
		&d.EmbeddingsStatus,
		&d.StorageKey,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetOrCreate relies on the unique company_id: a losing concurrent insert
// does nothing and the follow-up select sees the winner's row.
func (s *KnowledgeBaseStore) GetOrCreate(ctx context.Context, companyID uuid.UUID, name, description string) (*models.KnowledgeBase, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO knowledge_bases (company_id, name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'ready', now(), now())
		ON CONFLICT (company_id) DO NOTHING`, companyID, name, description)
	if err != nil {
		return nil, fmt.Errorf("insert knowledge base: %w", err)
	}
	kb, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, fmt.Errorf("knowledge base for company %s vanished after insert", companyID)
	}
	return kb, nil
}

func (s *KnowledgeBaseStore) Get(ctx context.Context, companyID uuid.UUID) (*models.KnowledgeBase, error) {
	kb, err := scanKnowledgeBase(s.pool.QueryRow(ctx, `
		SELECT id, company_id, name, description, status, file_count, created_at, updated_at
		FROM knowledge_bases
		WHERE company_id = $1`, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get knowledge base: %w", err)
	}
	return kb, nil
}

func (s *KnowledgeBaseStore) UpsertDocument(ctx context.Context, companyID, kbID uuid.UUID, filename, contentType string, size int64) (*models.Document, bool, error) {
	var (
		doc     *models.Document
		created bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// xmax = 0 only for freshly inserted rows.
		row := tx.QueryRow(ctx, `
			INSERT INTO documents (knowledge_base_id, company_id, filename, content_type, file_size,
			                       embeddings_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'processing', now(), now())
			ON CONFLICT (company_id, filename) DO UPDATE
			SET content_type = EXCLUDED.content_type,
			    file_size = EXCLUDED.file_size,
			    embeddings_status = 'processing',
			    updated_at = now()
			RETURNING `+documentColumns+`, (xmax = 0)`,
			kbID, companyID, filename, contentType, size)

		var d models.Document
		if err := row.Scan(
			&d.ID, &d.KnowledgeBaseID, &d.CompanyID, &d.Filename, &d.ContentType, &d.FileSize,
			&d.EmbeddingsStatus, &d.StorageKey, &d.CreatedAt, &d.UpdatedAt, &created,
		); err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		doc = &d

		delta := 0
		if created {
			delta = 1
		}
		if _, err := tx.Exec(ctx, `
			UPDATE knowledge_bases SET file_count = file_count + $2, updated_at = now()
			WHERE company_id = $1`, companyID, delta); err != nil {
			return fmt.Errorf("bump file count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return doc, created, nil
}

func (s *KnowledgeBaseStore) SetDocumentStatus(ctx context.Context, companyID, docID uuid.UUID, status models.EmbeddingsStatus, storageKey string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET embeddings_status = $3,
		    storage_key = CASE WHEN $4 = '' THEN storage_key ELSE $4 END,
		    updated_at = now()
		WHERE id = $1 AND company_id = $2`, docID, companyID, string(status), storageKey)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	return nil
}

func (s *KnowledgeBaseStore) GetDocument(ctx context.Context, companyID, docID uuid.UUID) (*models.Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1 AND company_id = $2`, docID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *KnowledgeBaseStore) ListDocuments(ctx context.Context, companyID uuid.UUID) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE company_id = $1
		ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *KnowledgeBaseStore) DeleteDocument(ctx context.Context, companyID, docID uuid.UUID) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND company_id = $2`, docID, companyID)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE knowledge_bases
			SET file_count = GREATEST(file_count - 1, 0), updated_at = now()
			WHERE company_id = $1`, companyID); err != nil {
			return fmt.Errorf("decrement file count: %w", err)
		}
		return nil
	})
}

func (s *KnowledgeBaseStore) ResetFileCount(ctx context.Context, companyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE knowledge_bases SET file_count = 0, updated_at = now()
		WHERE company_id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("reset file count: %w", err)
	}
	return nil
}

var _ repository.KnowledgeBaseRepository = (*KnowledgeBaseStore)(nil)
