package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/ai"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const embedBatchSize = 64

// PGVector keeps chunks in the shared document_chunks table, partitioned
// by company_id, and ranks them by L2 distance.
type PGVector struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *zap.Logger
}

func NewPGVector(pool *pgxpool.Pool, embedder ai.Embedder, logger *zap.Logger) *PGVector {
	return &PGVector{pool: pool, embedder: embedder, logger: logger}
}

// EnsureNamespace is a no-op: a namespace exists as soon as it has rows.
func (p *PGVector) EnsureNamespace(ctx context.Context, companyID uuid.UUID) error {
	return nil
}

func (p *PGVector) Put(ctx context.Context, companyID, docID uuid.UUID, text string) error {
	chunks := Split(text, DefaultChunkSize, DefaultChunkOverlap)

	// Embed before touching the table so a provider failure leaves the
	// previous version of the document searchable.
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		vecs, err := p.embedder.Embed(ctx, chunks[start:end])
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != end-start {
			return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), end-start)
		}
		vectors = append(vectors, vecs...)
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE company_id = $1 AND document_id = $2`, companyID, docID); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(`
				INSERT INTO document_chunks (company_id, document_id, position, content, embedding)
				VALUES ($1, $2, $3, $4, $5)`,
				companyID, docID, i, c, pgvector.NewVector(vectors[i]))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		p.logger.Debug("stored chunks",
			zap.String("namespace", Namespace(companyID)),
			zap.String("document_id", docID.String()),
			zap.Int("chunks", len(chunks)),
		)
		return nil
	})
}

func (p *PGVector) Query(ctx context.Context, companyID uuid.UUID, text string, k int) ([]Snippet, error) {
	vecs, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}

	rows, err := p.pool.Query(ctx, `
		SELECT document_id, position, content, embedding <-> $2 AS distance
		FROM document_chunks
		WHERE company_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3`, companyID, pgvector.NewVector(vecs[0]), k)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	out := make([]Snippet, 0, k)
	for rows.Next() {
		var (
			s        Snippet
			distance float64
		)
		if err := rows.Scan(&s.DocumentID, &s.Position, &s.Content, &distance); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		s.Score = 1 / (1 + distance)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (p *PGVector) Delete(ctx context.Context, companyID, docID uuid.UUID) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM document_chunks WHERE company_id = $1 AND document_id = $2`, companyID, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (p *PGVector) DeleteNamespace(ctx context.Context, companyID uuid.UUID) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM document_chunks WHERE company_id = $1`, companyID); err != nil {
		return fmt.Errorf("delete namespace: %w", err)
	}
	return nil
}

var _ Store = (*PGVector)(nil)
