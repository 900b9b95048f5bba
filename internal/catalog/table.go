// Package catalog loads a tabular product catalog and answers lookups against it.
package catalog

import (
	"strings"

	"github.com/hyperjump/agentroute/internal/models"
)

// Record is one normalized catalog row. Cells align with Table.Columns.
// The lower-cased shadow fields are used for matching only.
type Record struct {
	Cells  []string
	skuLC  string
	nameLC string
	descLC string
}

// Table is a normalized catalog. It is never mutated after Normalize returns.
type Table struct {
	Columns []string
	Records []Record
	index   map[string]int
}

func newTable(columns []string, records []Record) *Table {
	t := &Table{Columns: columns, Records: records, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
	return t
}

// Has reports whether the table has a column named name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Value returns the cell of column name in r, or "" when absent.
func (t *Table) Value(r Record, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// displayColumns returns the canonical columns present in t, or every
// non-internal column when the table has none of them.
func (t *Table) displayColumns() []string {
	var cols []string
	for _, c := range models.CanonicalFields {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) > 0 {
		return cols
	}
	for _, c := range t.Columns {
		if !strings.HasPrefix(c, "_") {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) project(recs []Record) []models.ProductRow {
	if len(recs) == 0 {
		return nil
	}
	cols := t.displayColumns()
	out := make([]models.ProductRow, 0, len(recs))
	for _, r := range recs {
		row := make(models.ProductRow, len(cols))
		for _, c := range cols {
			row[c] = t.Value(r, c)
		}
		out = append(out, row)
	}
	return out
}
