package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/agentroute/internal/embedding"
	"github.com/hyperjump/agentroute/internal/extract"
	"github.com/hyperjump/agentroute/internal/keyword"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/storage"
	"github.com/hyperjump/agentroute/internal/vector"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"rate_limiting.md":     "Token bucket rate limiting.",
		"guides/cloud.txt":     "Cloud VM pricing basics.",
		"notes.rst":            "Release notes.",
		"image.png":            "binary",
		"guides/deep/setup.md": "Setup steps.",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadDocuments(t *testing.T) {
	dir := writeCorpus(t)
	docs, err := LoadDocuments(dir, extract.NewExtractor())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"guides/cloud.txt", "guides/deep/setup.md", "notes.rst", "rate_limiting.md"}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs: %+v", len(docs), docs)
	}
	for i, id := range want {
		if docs[i].ID != id {
			t.Errorf("doc %d = %q, want %q", i, docs[i].ID, id)
		}
	}
	if docs[3].Text != "Token bucket rate limiting." {
		t.Errorf("text = %q", docs[3].Text)
	}
}

func TestLoadDocuments_missingDir(t *testing.T) {
	_, err := LoadDocuments(filepath.Join(t.TempDir(), "nope"), nil)
	if !errors.Is(err, ErrLoadFailure) {
		t.Errorf("expected ErrLoadFailure, got %v", err)
	}
}

func newTestIndexer(t *testing.T, opts ...IndexerOption) (*Indexer, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewIndexer(store, embedding.NewMockEmbedder(16), opts...), store
}

func TestBuild(t *testing.T) {
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Close()
	idx, store := newTestIndexer(t, WithKeywordIndex(kw), WithBatchSize(2))
	ctx := context.Background()
	docs := []models.Document{
		{ID: "a.md", Text: "alpha  text"},
		{ID: "b.md", Text: "beta text"},
		{ID: "c.md", Text: "gamma text"},
	}
	vi, _ := vector.NewMemoryIndex(16, vector.MetricCosine)

	if _, ok := idx.StoredIndex(ctx, docs, vector.MetricCosine); ok {
		t.Error("nothing built yet")
	}
	if err := idx.Build(ctx, docs, vi); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if vi.Size() != 3 {
		t.Errorf("vector size = %d, want 3", vi.Size())
	}
	if n, _ := store.CountDocuments(ctx); n != 3 {
		t.Errorf("stored %d documents", n)
	}
	if n, _ := kw.DocCount(); n != 3 {
		t.Errorf("keyword index has %d documents", n)
	}
	if dims, ok := idx.StoredIndex(ctx, docs, vector.MetricCosine); !ok || dims != 16 {
		t.Errorf("StoredIndex = %d, %v; want 16, true", dims, ok)
	}

	changed := append([]models.Document{}, docs...)
	changed[1].Text = "beta text, edited"
	if _, ok := idx.StoredIndex(ctx, changed, vector.MetricCosine); ok {
		t.Error("changed corpus must not match")
	}
	if _, ok := idx.StoredIndex(ctx, docs, vector.MetricL2); ok {
		t.Error("different metric must not match")
	}
}

func TestBuild_noEmbedder(t *testing.T) {
	store, _ := storage.NewSQLiteStorage(":memory:")
	defer store.Close()
	idx := NewIndexer(store, nil)
	vi, _ := vector.NewMemoryIndex(4, vector.MetricCosine)
	err := idx.Build(context.Background(), []models.Document{{ID: "a", Text: "x"}}, vi)
	if !errors.Is(err, embedding.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if err := idx.Build(context.Background(), []models.Document{{ID: "a", Text: "x"}}, nil); err != nil {
		t.Errorf("store-only build should succeed: %v", err)
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("  a \n\t b  "); got != "a b" {
		t.Errorf("Preprocess = %q", got)
	}
}
