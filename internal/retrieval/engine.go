// Package retrieval answers knowledge base queries by vector similarity and
// falls back to substring matching whenever the vector path cannot serve.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/agentroute/internal/embedding"
	"github.com/hyperjump/agentroute/internal/extract"
	"github.com/hyperjump/agentroute/internal/indexer"
	"github.com/hyperjump/agentroute/internal/keyword"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/storage"
	"github.com/hyperjump/agentroute/internal/vector"
	"github.com/hyperjump/agentroute/pkg/utils"
)

// DefaultTopK is the number of hits returned when no limit is configured.
const DefaultTopK = 3

var (
	// ErrLoadFailure is returned when the corpus directory cannot be read.
	ErrLoadFailure = indexer.ErrLoadFailure
	// ErrEmptyCorpus is returned when the corpus has no supported documents.
	ErrEmptyCorpus = errors.New("corpus has no documents")
	// ErrNoKeywordIndex is returned by KeywordSearch when no index is configured.
	ErrNoKeywordIndex = errors.New("keyword index not configured")
)

// Engine retrieves knowledge base hits for a query.
type Engine struct {
	dir       string
	extractor *extract.Extractor
	store     storage.Storage
	embedder  embedding.Embedder
	keyword   keyword.KeywordIndex
	indexer   *indexer.Indexer
	metric    vector.Metric
	indexPath string
	topK      int
	logger    *zap.Logger

	group   singleflight.Group
	buildMu sync.Mutex
	stored  bool // docs are in the store and keyword index; guarded by buildMu

	mu     sync.RWMutex
	loaded bool
	docs   []models.Document
	byID   map[string]string
	index  vector.VectorIndex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTopK sets how many hits Retrieve returns.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithMetric sets the vector comparison metric.
func WithMetric(m vector.Metric) Option {
	return func(e *Engine) {
		if m != "" {
			e.metric = m
		}
	}
}

// WithIndexPath persists the vector index at path and reuses it while the
// corpus is unchanged.
func WithIndexPath(path string) Option {
	return func(e *Engine) { e.indexPath = path }
}

// WithKeywordIndex keeps kw in sync with the corpus for KeywordSearch.
func WithKeywordIndex(kw keyword.KeywordIndex) Option {
	return func(e *Engine) { e.keyword = kw }
}

// WithExtensions restricts the corpus to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) { e.extractor = extract.NewExtractor(exts...) }
}

// NewEngine returns an engine over the corpus in dir. embedder may be nil, in
// which case every query is answered by the keyword fallback.
func NewEngine(dir string, store storage.Storage, embedder embedding.Embedder, opts ...Option) *Engine {
	e := &Engine{
		dir:       dir,
		extractor: extract.NewExtractor(),
		store:     store,
		embedder:  embedder,
		metric:    vector.MetricCosine,
		topK:      DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	idxOpts := []indexer.IndexerOption{indexer.WithLogger(e.logger)}
	if e.keyword != nil {
		idxOpts = append(idxOpts, indexer.WithKeywordIndex(e.keyword))
	}
	e.indexer = indexer.NewIndexer(store, embedder, idxOpts...)
	return e
}

// EnsureIndex loads the corpus and builds the vector index once. Concurrent
// callers share a single build. An index already built in this process, or
// persisted for the same corpus, is reused.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	_, err, _ := e.group.Do("ensure", func() (any, error) {
		return nil, e.build(ctx, false)
	})
	return err
}

// Reindex reloads the corpus and rebuilds every index from scratch.
func (e *Engine) Reindex(ctx context.Context) error {
	_, err, _ := e.group.Do("reindex", func() (any, error) {
		return nil, e.build(ctx, true)
	})
	return err
}

func (e *Engine) build(ctx context.Context, force bool) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.mu.RLock()
	loaded, docs, index := e.loaded, e.docs, e.index
	e.mu.RUnlock()
	if !force && index != nil && index.Size() > 0 {
		return nil
	}

	if force || !loaded {
		var err error
		docs, err = indexer.LoadDocuments(e.dir, e.extractor)
		if err != nil {
			e.setCorpus(nil, nil)
			return err
		}
		e.setCorpus(docs, nil)
		e.stored = false
	}
	if !e.stored {
		if err := e.indexer.StoreDocuments(ctx, docs); err != nil {
			return err
		}
		e.stored = true
	}
	if len(docs) == 0 {
		return ErrEmptyCorpus
	}
	if e.embedder == nil {
		return fmt.Errorf("%w: no embedder configured", embedding.ErrBackendUnavailable)
	}

	if !force {
		if vi := e.loadPersisted(ctx, docs); vi != nil {
			e.setCorpus(docs, vi)
			e.logger.Info("Reusing persisted vector index", zap.Int("documents", vi.Size()))
			return nil
		}
	}

	dims := e.embedder.Dimensions()
	if dims <= 0 {
		probe, err := e.embedder.Embed(ctx, indexer.Preprocess(docs[0].Text))
		if err != nil {
			return fmt.Errorf("failed to probe embedding dimensions: %w", err)
		}
		dims = len(probe)
	}
	vi, err := vector.NewMemoryIndex(dims, e.metric)
	if err != nil {
		return err
	}
	if err := e.indexer.EmbedDocuments(ctx, docs, vi); err != nil {
		return err
	}
	if e.indexPath != "" {
		if err := vi.Save(e.indexPath); err != nil {
			e.logger.Warn("Failed to persist vector index", zap.String("path", e.indexPath), zap.Error(err))
		}
	}
	e.setCorpus(docs, vi)
	return nil
}

func (e *Engine) loadPersisted(ctx context.Context, docs []models.Document) vector.VectorIndex {
	if e.indexPath == "" {
		return nil
	}
	dims, ok := e.indexer.StoredIndex(ctx, docs, e.metric)
	if !ok {
		return nil
	}
	if d := e.embedder.Dimensions(); d > 0 && d != dims {
		return nil
	}
	vi, err := vector.NewMemoryIndex(dims, e.metric)
	if err != nil {
		return nil
	}
	if err := vi.Load(e.indexPath); err != nil {
		e.logger.Debug("Persisted vector index unusable", zap.Error(err))
		return nil
	}
	if vi.Size() != len(docs) {
		return nil
	}
	return vi
}

func (e *Engine) setCorpus(docs []models.Document, vi vector.VectorIndex) {
	byID := make(map[string]string, len(docs))
	for _, d := range docs {
		byID[d.ID] = d.Text
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = docs != nil
	e.docs = docs
	e.byID = byID
	e.index = vi
}

// Retrieve returns up to top_k hits for query ordered by descending
// relevance. It never fails: any problem on the vector path, or zero vector
// hits, yields the keyword fallback instead.
func (e *Engine) Retrieve(ctx context.Context, query string) []models.Hit {
	hits, err := e.vectorSearch(ctx, query)
	if err == nil && len(hits) > 0 {
		e.logger.Debug("Vector retrieval", zap.String("query", query), zap.Int("hits", len(hits)))
		return hits
	}
	reason := "no vector hits"
	if err != nil {
		reason = err.Error()
	}
	hits = e.keywordFallback(query)
	e.logger.Info("Using keyword fallback",
		zap.String("query", query),
		zap.String("reason", reason),
		zap.Int("hits", len(hits)))
	return hits
}

func (e *Engine) vectorSearch(ctx context.Context, query string) ([]models.Hit, error) {
	if err := e.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	e.mu.RLock()
	index := e.index
	e.mu.RUnlock()
	if index == nil {
		return nil, fmt.Errorf("vector index unavailable")
	}
	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := index.Search(ctx, qvec, e.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		text, ok := e.text(ctx, r.ID)
		if !ok {
			continue
		}
		s := r.Score
		if index.Metric() == vector.MetricL2 {
			s = -s
		}
		hits = append(hits, models.Hit{DocID: r.ID, Text: text, Score: s, Source: models.HitSourceVector})
	}
	return hits, nil
}

func (e *Engine) text(ctx context.Context, id string) (string, bool) {
	if doc, err := e.store.GetDocument(ctx, id); err == nil {
		return doc.Text, true
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	text, ok := e.byID[id]
	return text, ok
}

// keywordFallback scans the corpus in order for documents containing the
// whole query, case-insensitively. Every match scores 1.0.
func (e *Engine) keywordFallback(query string) []models.Hit {
	e.mu.RLock()
	docs := e.docs
	e.mu.RUnlock()
	q := strings.ToLower(query)
	var hits []models.Hit
	for _, d := range docs {
		if len(hits) >= e.topK {
			break
		}
		if strings.Contains(strings.ToLower(d.Text), q) {
			hits = append(hits, models.Hit{DocID: d.ID, Text: d.Text, Score: 1.0, Source: models.HitSourceKeyword})
		}
	}
	return hits
}

// KeywordSearch returns BM25-ranked matches from the keyword index. Text
// holds the highlighted fragment when there is one.
func (e *Engine) KeywordSearch(ctx context.Context, query string, limit int) ([]models.Hit, error) {
	if e.keyword == nil {
		return nil, ErrNoKeywordIndex
	}
	if err := e.EnsureIndex(ctx); errors.Is(err, ErrLoadFailure) {
		return nil, err
	}
	if limit <= 0 {
		limit = e.topK
	}
	results, err := e.keyword.Search(ctx, query, limit, &keyword.SearchOptions{Highlight: true})
	if err != nil {
		return nil, err
	}
	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		text := strings.Join(r.Fragments, " ... ")
		if text == "" {
			full, _ := e.text(ctx, r.ID)
			text = utils.Head(full, 200)
		}
		hits = append(hits, models.Hit{DocID: r.ID, Text: text, Score: r.Score, Source: models.HitSourceKeyword})
	}
	return hits, nil
}

// DocumentCount returns the number of documents in the loaded corpus.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// IndexSize returns the number of vectors in the current index.
func (e *Engine) IndexSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0
	}
	return e.index.Size()
}

// Dir returns the corpus directory.
func (e *Engine) Dir() string { return e.dir }
