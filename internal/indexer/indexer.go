// Package indexer loads the knowledge base corpus and builds its indices.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/embedding"
	"github.com/hyperjump/agentroute/internal/extract"
	"github.com/hyperjump/agentroute/internal/fileid"
	"github.com/hyperjump/agentroute/internal/keyword"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/storage"
	"github.com/hyperjump/agentroute/internal/vector"
)

// ErrLoadFailure is returned when the corpus directory cannot be read.
var ErrLoadFailure = errors.New("corpus load failure")

const defaultBatchSize = 32

// Indexer embeds documents into a vector index and records what was indexed.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	keywordIndex keyword.KeywordIndex
	batchSize    int
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithKeywordIndex also rebuilds kw on every build.
func WithKeywordIndex(kw keyword.KeywordIndex) IndexerOption {
	return func(idx *Indexer) { idx.keywordIndex = kw }
}

// WithBatchSize sets how many documents are embedded per request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer. embedder may be nil when only the document
// store and keyword index are wanted.
func NewIndexer(store storage.Storage, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:   store,
		embedder:  embedder,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// LoadDocuments walks dir in lexical order and returns every file the
// extractor accepts. Unreadable or unsupported files are skipped.
func LoadDocuments(dir string, ex *extract.Extractor) ([]models.Document, error) {
	if ex == nil {
		ex = extract.NewExtractor()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrLoadFailure, dir)
	}
	var docs []models.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ex.Supported(path) {
			return nil
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		text, exErr := ex.Extract(path)
		if exErr != nil {
			return nil
		}
		docs = append(docs, models.Document{ID: fileid.DocID(dir, path), Text: text})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	return docs, nil
}

// Fingerprint returns the digest identifying the content of docs.
func Fingerprint(docs []models.Document) string {
	hashes := make(map[string]string, len(docs))
	for _, d := range docs {
		hashes[d.ID] = fileid.ContentHash(d.Text)
	}
	return fileid.Fingerprint(hashes)
}

// Build stores docs and embeds them into vi. vi may be nil.
func (idx *Indexer) Build(ctx context.Context, docs []models.Document, vi vector.VectorIndex) error {
	if err := idx.StoreDocuments(ctx, docs); err != nil {
		return err
	}
	if vi == nil {
		return nil
	}
	return idx.EmbedDocuments(ctx, docs, vi)
}

// StoreDocuments replaces the stored corpus with docs and rebuilds the
// keyword index when one is configured.
func (idx *Indexer) StoreDocuments(ctx context.Context, docs []models.Document) error {
	if err := idx.storage.ReplaceDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Rebuild(ctx, docs); err != nil {
			idx.logger.Warn("Keyword index rebuild failed", zap.Error(err))
		}
	}
	return nil
}

// EmbedDocuments embeds docs into vi. The corpus fingerprint is recorded last
// so a half-finished build is never reused.
func (idx *Indexer) EmbedDocuments(ctx context.Context, docs []models.Document, vi vector.VectorIndex) error {
	if idx.embedder == nil {
		return fmt.Errorf("%w: no embedder", embedding.ErrBackendUnavailable)
	}
	for start := 0; start < len(docs); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]
		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = Preprocess(d.Text)
			ids[i] = d.ID
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if err := vi.Add(ctx, ids, vecs); err != nil {
			return fmt.Errorf("failed to index vectors: %w", err)
		}
		idx.logger.Debug("Indexed batch", zap.Int("from", start), zap.Int("to", end))
	}

	state := map[string]string{
		storage.StateIndexMetric:       string(vi.Metric()),
		storage.StateIndexDimensions:   strconv.Itoa(vi.Dimensions()),
		storage.StateCorpusFingerprint: Fingerprint(docs),
	}
	for _, key := range []string{storage.StateIndexMetric, storage.StateIndexDimensions, storage.StateCorpusFingerprint} {
		if err := idx.storage.SetState(ctx, key, state[key]); err != nil {
			return fmt.Errorf("failed to record index state: %w", err)
		}
	}
	idx.logger.Info("Index built", zap.Int("documents", len(docs)), zap.String("metric", string(vi.Metric())))
	return nil
}

// StoredIndex reports the dimension of the index recorded for docs under
// metric. ok is false when nothing was recorded or the corpus changed since.
func (idx *Indexer) StoredIndex(ctx context.Context, docs []models.Document, metric vector.Metric) (dims int, ok bool) {
	fp, err := idx.storage.GetState(ctx, storage.StateCorpusFingerprint)
	if err != nil || fp != Fingerprint(docs) {
		return 0, false
	}
	m, err := idx.storage.GetState(ctx, storage.StateIndexMetric)
	if err != nil || m != string(metric) {
		return 0, false
	}
	v, err := idx.storage.GetState(ctx, storage.StateIndexDimensions)
	if err != nil {
		return 0, false
	}
	dims, err = strconv.Atoi(v)
	if err != nil || dims <= 0 {
		return 0, false
	}
	return dims, true
}
