// Package keyword provides BM25 keyword search over knowledge base documents.
package keyword

import (
	"context"

	"github.com/hyperjump/agentroute/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
	// Highlight requests highlighted text fragments for each hit.
	Highlight bool
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	// Rebuild replaces the indexed corpus with docs.
	Rebuild(ctx context.Context, docs []models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID        string   `json:"id"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}
