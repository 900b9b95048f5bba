// Package extract provides text extraction for knowledge base files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for files whose extension is not accepted.
var ErrUnsupported = errors.New("unsupported file type")

// DefaultExtensions are the plain-text formats accepted in the corpus.
var DefaultExtensions = []string{".md", ".txt", ".rst"}

// Extractor extracts plain text from corpus files.
type Extractor struct {
	exts map[string]struct{}
}

// NewExtractor returns an Extractor accepting exts, or DefaultExtensions when empty.
func NewExtractor(exts ...string) *Extractor {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	e := &Extractor{exts: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		e.exts[ext] = struct{}{}
	}
	return e
}

// Supported reports whether path has an accepted extension.
func (e *Extractor) Supported(path string) bool {
	_, ok := e.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the file at path and returns its text content.
// Returns ErrUnsupported for extensions outside the accepted set.
func (e *Extractor) Extract(path string) (string, error) {
	if !e.Supported(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return extractPlain(content)
}
