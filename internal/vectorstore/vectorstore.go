// Package vectorstore stores document chunks per company and answers
// similarity queries. Every call names the company explicitly; there is no
// ambient "current namespace".
package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

type Snippet struct {
	DocumentID uuid.UUID `json:"document_id"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
}

type Store interface {
	EnsureNamespace(ctx context.Context, companyID uuid.UUID) error
	// Put replaces all chunks of docID with chunks of text.
	Put(ctx context.Context, companyID, docID uuid.UUID, text string) error
	Query(ctx context.Context, companyID uuid.UUID, text string, k int) ([]Snippet, error)
	Delete(ctx context.Context, companyID, docID uuid.UUID) error
	DeleteNamespace(ctx context.Context, companyID uuid.UUID) error
}

// Namespace is the per-company partition name, "company_<id>".
func Namespace(companyID uuid.UUID) string {
	return "company_" + companyID.String()
}
