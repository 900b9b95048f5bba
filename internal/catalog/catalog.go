package catalog

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/models"
)

var (
	sanitizeRe   = regexp.MustCompile(`[^A-Za-z0-9\s\-:]`)
	listIntentRe = regexp.MustCompile(`\b(show|list|available)\b.*\b(products?|items?)\b`)
	skuMarkerRe  = regexp.MustCompile(`(?i)\bsku[-\s:]*([A-Za-z0-9-]+)\b`)
	bareSKURe    = regexp.MustCompile(`^[A-Za-z]{2,}\d{2,}(-[A-Za-z0-9]+)?$`)
)

// Catalog serves lookups over a Table that can be swapped by Reload.
// A nil table means the last load failed; lookups then return no rows.
type Catalog struct {
	path   string
	opts   NormalizeOptions
	logger *zap.Logger

	table   atomic.Pointer[Table]
	mu      sync.Mutex
	loadErr error
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSKUThreshold overrides DefaultSKUThreshold.
func WithSKUThreshold(v float64) Option {
	return func(c *Catalog) { c.opts.SKUThreshold = v }
}

// New loads the catalog at path. A load failure is logged and kept in
// LoadError; the returned Catalog is always usable.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{
		path:   path,
		opts:   NormalizeOptions{SKUThreshold: DefaultSKUThreshold},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	_ = c.Reload()
	return c
}

// FromTable wraps an already normalized table.
func FromTable(t *Table) *Catalog {
	c := &Catalog{opts: NormalizeOptions{SKUThreshold: DefaultSKUThreshold}, logger: zap.NewNop()}
	c.table.Store(t)
	return c
}

// Path returns the catalog file path.
func (c *Catalog) Path() string { return c.path }

// Reload reads the file again and swaps the table in one step. On failure
// the table becomes nil so readers degrade to empty results.
func (c *Catalog) Reload() error {
	t, err := Load(c.path, c.opts)
	c.mu.Lock()
	c.loadErr = err
	c.mu.Unlock()
	if err != nil {
		c.table.Store(nil)
		c.logger.Warn("Catalog unavailable", zap.String("path", c.path), zap.Error(err))
		return err
	}
	c.table.Store(t)
	c.logger.Info("Catalog loaded",
		zap.String("path", c.path),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns))
	return nil
}

// LoadError returns the error of the most recent load, if any.
func (c *Catalog) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Table returns the current table, or nil.
func (c *Catalog) Table() *Table {
	return c.table.Load()
}

// Lookup returns the rows matching query and the time spent.
func (c *Catalog) Lookup(query string) ([]models.ProductRow, time.Duration) {
	start := time.Now()
	t := c.table.Load()
	if t == nil {
		return nil, time.Since(start)
	}
	return t.Lookup(query), time.Since(start)
}

// Lookup matches query against the table. A listing request returns every
// row; a SKU token is matched exactly; anything else is a substring search
// over sku, name and description.
func (t *Table) Lookup(query string) []models.ProductRow {
	clean := strings.TrimSpace(sanitizeRe.ReplaceAllString(strings.TrimSpace(query), ""))
	lc := strings.ToLower(clean)

	if listIntentRe.MatchString(lc) {
		return t.project(t.Records)
	}

	if tok := skuToken(clean); tok != "" && t.Has("sku") {
		want := strings.ToLower(tok)
		var out []Record
		for _, r := range t.Records {
			if r.skuLC == want {
				out = append(out, r)
			}
		}
		return t.project(out)
	}

	hasSKU, hasName, hasDesc := t.Has("sku"), t.Has("name"), t.Has("description")
	var out []Record
	for _, r := range t.Records {
		if (hasSKU && strings.Contains(r.skuLC, lc)) ||
			(hasName && strings.Contains(r.nameLC, lc)) ||
			(hasDesc && strings.Contains(r.descLC, lc)) {
			out = append(out, r)
		}
	}
	return t.project(out)
}

func skuToken(q string) string {
	q = strings.TrimSpace(q)
	if m := skuMarkerRe.FindStringSubmatch(q); m != nil {
		return strings.ToUpper(m[1])
	}
	if bareSKURe.MatchString(q) {
		return strings.ToUpper(q)
	}
	return ""
}
