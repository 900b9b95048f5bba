// Package storage persists knowledge base documents and index state.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/agentroute/internal/models"
)

// ErrNotFound is returned when a document or state key does not exist.
var ErrNotFound = errors.New("not found")

// State keys.
const (
	StateCorpusFingerprint = "corpus_fingerprint"
	StateIndexMetric       = "index_metric"
	StateIndexDimensions   = "index_dimensions"
)

// Storage maps vector IDs back to document text and remembers which corpus
// the persisted index was built from.
type Storage interface {
	// ReplaceDocuments swaps the stored corpus for docs, keeping their order.
	ReplaceDocuments(ctx context.Context, docs []models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns documents in corpus order.
	ListDocuments(ctx context.Context) ([]models.Document, error)
	// DocumentHashes returns content hashes keyed by document ID.
	DocumentHashes(ctx context.Context) (map[string]string, error)
	CountDocuments(ctx context.Context) (int64, error)

	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}
