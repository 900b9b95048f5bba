// Package watcher reindexes the knowledge base and reloads the product catalog
// when their files change on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Reindexer rebuilds the knowledge base index.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// Reloader re-reads the product catalog.
type Reloader interface {
	Reload() error
}

type target string

const (
	targetKB      target = "kb"
	targetCatalog target = "catalog"
)

// Watcher watches the KB directory and the catalog file's directory.
type Watcher struct {
	kbDir       string
	catalogPath string
	extensions  []string
	reindexer   Reindexer
	reloader    Reloader
	debounce    time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[target]*time.Timer
	ctx      context.Context
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions limits KB events to files with these extensions. Empty means all.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// NewWatcher creates a watcher. An empty kbDir or catalogPath, or a nil
// reindexer or reloader, disables that half.
func NewWatcher(kbDir, catalogPath string, reindexer Reindexer, reloader Reloader, opts ...Option) *Watcher {
	w := &Watcher{
		reindexer: reindexer,
		reloader:  reloader,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		timers:    make(map[target]*time.Timer),
		done:      make(chan struct{}),
	}
	if kbDir != "" && reindexer != nil {
		w.kbDir = filepath.Clean(kbDir)
	}
	if catalogPath != "" && reloader != nil {
		w.catalogPath = filepath.Clean(catalogPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// A missing KB directory is created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if w.kbDir != "" {
		if err := addTree(fsw, w.kbDir, true); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	if w.catalogPath != "" {
		if err := fsw.Add(filepath.Dir(w.catalogPath)); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.watcher = fsw
	w.ctx = ctx
	w.started = true
	w.logger.Debug("watcher starting",
		zap.String("kb_dir", w.kbDir),
		zap.String("catalog", w.catalogPath),
		zap.Duration("debounce", w.debounce))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if w.catalogPath != "" && path == w.catalogPath {
		w.logger.Debug("catalog event", zap.String("op", ev.Op.String()), zap.String("path", path))
		w.schedule(targetCatalog)
		return
	}
	if w.kbDir == "" || !inDir(w.kbDir, path) {
		return
	}
	w.logger.Debug("kb event", zap.String("op", ev.Op.String()), zap.String("path", path))
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.addDirectory(path)
			w.schedule(targetKB)
			return
		}
	}
	// A removed directory has no extension and cannot be stat'ed.
	if matchExtension(path, w.extensions) || ((ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) && filepath.Ext(path) == "") {
		w.schedule(targetKB)
	}
}

func (w *Watcher) addDirectory(dir string) {
	w.mu.Lock()
	fsw := w.watcher
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := addTree(fsw, dir, false); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
}

func (w *Watcher) schedule(t target) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if prev, ok := w.timers[t]; ok {
		prev.Stop()
	}
	w.timers[t] = time.AfterFunc(w.debounce, func() { w.fire(t) })
}

func (w *Watcher) fire(t target) {
	w.mu.Lock()
	delete(w.timers, t)
	ctx := w.ctx
	w.mu.Unlock()

	switch t {
	case targetKB:
		start := time.Now()
		if err := w.reindexer.Reindex(ctx); err != nil {
			w.logger.Warn("reindex after change failed", zap.String("kb_dir", w.kbDir), zap.Error(err))
			return
		}
		w.logger.Info("knowledge base reindexed", zap.String("kb_dir", w.kbDir), zap.Duration("took", time.Since(start)))
	case targetCatalog:
		if err := w.reloader.Reload(); err != nil {
			w.logger.Warn("catalog reload failed", zap.String("path", w.catalogPath), zap.Error(err))
			return
		}
		w.logger.Info("catalog reloaded", zap.String("path", w.catalogPath))
	}
}

// Stop stops the watcher and cancels pending triggers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for t, timer := range w.timers {
		timer.Stop()
		delete(w.timers, t)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// addTree watches root and every directory below it.
func addTree(fsw *fsnotify.Watcher, root string, create bool) error {
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) || !create {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
