package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/agentroute/internal/fileid"
	"github.com/hyperjump/agentroute/internal/models"
)

func TestSQLiteStorage_Documents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	docs := []models.Document{
		{ID: "zeta.md", Text: "last alphabetically, first in corpus"},
		{ID: "alpha.md", Text: "second"},
	}
	if err := store.ReplaceDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "alpha.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "second" {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "zeta.md" {
		t.Errorf("expected corpus order, got %+v", list)
	}

	hashes, err := store.DocumentHashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hashes["alpha.md"] != fileid.ContentHash("second") {
		t.Errorf("hash mismatch: %q", hashes["alpha.md"])
	}

	if err := store.ReplaceDocuments(ctx, docs[1:]); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountDocuments = %d, %v; want 1", n, err)
	}
	if _, err := store.GetDocument(ctx, "zeta.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after replace, got %v", err)
	}
}

func TestSQLiteStorage_State(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.GetState(ctx, StateCorpusFingerprint); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetState(ctx, StateCorpusFingerprint, "abc"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetState(ctx, StateCorpusFingerprint, "def"); err != nil {
		t.Fatal(err)
	}
	v, err := store.GetState(ctx, StateCorpusFingerprint)
	if err != nil || v != "def" {
		t.Errorf("GetState = %q, %v; want def", v, err)
	}
}

func TestSQLiteStorage_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.ReplaceDocuments(ctx, []models.Document{{ID: "a.md", Text: "A"}})
	_ = store.SetState(ctx, StateIndexMetric, "l2")
	_ = store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.CountDocuments(ctx); n != 1 {
		t.Errorf("documents not persisted: %d", n)
	}
	if v, _ := store.GetState(ctx, StateIndexMetric); v != "l2" {
		t.Errorf("state not persisted: %q", v)
	}
}
