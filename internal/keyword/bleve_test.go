package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/agentroute/internal/models"
)

var corpus = []models.Document{
	{ID: "rate_limiting.md", Text: "The token bucket algorithm refills tokens at a fixed rate."},
	{ID: "guides/cloud-pricing.txt", Text: "Cloud VM pricing depends on region and instance size."},
	{ID: "bayes.rst", Text: "The Bayes app is referenced in the monthly report."},
}

func newIndex(t *testing.T, path string) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newIndex(t, filepath.Join(t.TempDir(), "bleve"))
	ctx := context.Background()
	if err := idx.Rebuild(ctx, corpus); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	results, err := idx.Search(ctx, "token bucket", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "rate_limiting.md" {
		t.Fatalf("expected rate_limiting.md first, got %+v", results)
	}

	// Standard analyzer (no stemming) so "bayes" matches "Bayes".
	results, err = idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 || results[0].ID != "bayes.rst" {
		t.Errorf("expected bayes.rst first, got %+v", results)
	}
}

func TestBleveIndex_SearchFindsTitle(t *testing.T) {
	idx := newIndex(t, "")
	ctx := context.Background()
	_ = idx.Rebuild(ctx, corpus)

	results, err := idx.Search(ctx, "guides", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "guides/cloud-pricing.txt" {
		t.Errorf("expected title match, got %+v", results)
	}
}

func TestBleveIndex_FuzzyAndHighlight(t *testing.T) {
	idx := newIndex(t, "")
	ctx := context.Background()
	_ = idx.Rebuild(ctx, corpus)

	results, err := idx.Search(ctx, "pricng", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("typo should not match without fuzzy, got %+v", results)
	}

	results, err = idx.Search(ctx, "pricng", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1, Highlight: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "guides/cloud-pricing.txt" {
		t.Fatalf("fuzzy search should find pricing, got %+v", results)
	}
	if len(results[0].Fragments) == 0 {
		t.Error("expected highlight fragments")
	}
}

func TestBleveIndex_RebuildReplaces(t *testing.T) {
	idx := newIndex(t, "")
	ctx := context.Background()
	_ = idx.Rebuild(ctx, corpus)
	if n, _ := idx.DocCount(); n != 3 {
		t.Fatalf("DocCount = %d, want 3", n)
	}

	if err := idx.Rebuild(ctx, corpus[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("DocCount after rebuild = %d, want 1", n)
	}
	results, _ := idx.Search(ctx, "bayes", 10, nil)
	if len(results) != 0 {
		t.Errorf("removed document still found: %+v", results)
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.Rebuild(ctx, corpus)
	_ = idx.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index dir not created: %v", err)
	}
	reopened := newIndex(t, path)
	if n, _ := reopened.DocCount(); n != 3 {
		t.Errorf("reopened DocCount = %d, want 3", n)
	}
}
