// Package embedding provides text embedding backends and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrBackendUnavailable is returned when no embedding backend is configured
// or the configured one lacks credentials.
var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
