// Package objectstore archives raw knowledge base uploads.
package objectstore

import (
	"context"
	"path"

	"github.com/google/uuid"
)

type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Key is "<company>/<document>/<filename>"; the filename is reduced to its
// base name so uploads cannot escape their prefix.
func Key(companyID, docID uuid.UUID, filename string) string {
	return path.Join(companyID.String(), docID.String(), path.Base("/"+filename))
}
