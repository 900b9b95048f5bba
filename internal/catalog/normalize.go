package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSKUThreshold is the fraction of SKU-shaped cells above which an
// unnamed column is taken to be the sku column.
const DefaultSKUThreshold = 0.3

// NormalizeOptions tunes the column heuristics.
type NormalizeOptions struct {
	SKUThreshold float64
}

type renameRule struct {
	pattern   *regexp.Regexp
	canonical string
}

var (
	innerSplitRe = regexp.MustCompile(`[,\t;]\s*|\s{2,}`)
	skuCellRe    = regexp.MustCompile(`^[A-Za-z]{2,}\d{2,}$`)

	renameRules = []renameRule{
		{regexp.MustCompile(`^(id|sku_id)$`), "sku"},
		{regexp.MustCompile(`^(product|item|title)$`), "name"},
	}
)

// Normalize turns a raw header and rows into a Table with canonical column
// names and shadow fields. Rows are never dropped.
func Normalize(header []string, rows [][]string, opts NormalizeOptions) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}
	cells := padRows(rows, len(cols))

	if len(cols) == 1 && cols[0] != "sku" {
		cols, cells = splitSingleColumn(cols, cells)
	}

	for i, c := range cols {
		for _, rule := range renameRules {
			if rule.pattern.MatchString(c) && !contains(cols, rule.canonical) {
				cols[i] = rule.canonical
				break
			}
		}
	}

	if !contains(cols, "sku") {
		if i := skuColumnByContent(cells, len(cols), opts.SKUThreshold); i >= 0 {
			cols[i] = "sku"
		}
	}

	if !contains(cols, "name") {
		for i, c := range cols {
			if c == "col1" {
				cols[i] = "name"
				break
			}
		}
	}

	records := make([]Record, len(cells))
	for i, row := range cells {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
		records[i] = Record{Cells: row}
	}
	t := newTable(cols, records)
	for i := range t.Records {
		r := &t.Records[i]
		r.skuLC = strings.ToLower(t.Value(*r, "sku"))
		r.nameLC = strings.ToLower(t.Value(*r, "name"))
		r.descLC = strings.ToLower(t.Value(*r, "description"))
	}
	return t
}

// splitSingleColumn expands a one-column table whose cells hold delimited
// fields. The table is returned unchanged when no cell splits.
func splitSingleColumn(cols []string, cells [][]string) ([]string, [][]string) {
	split := make([][]string, len(cells))
	width := 1
	for i, row := range cells {
		split[i] = innerSplitRe.Split(row[0], -1)
		if len(split[i]) > width {
			width = len(split[i])
		}
	}
	if width <= 1 {
		return cols, cells
	}
	newCols := make([]string, width)
	for i := range newCols {
		newCols[i] = fmt.Sprintf("col%d", i)
	}
	return newCols, padRows(split, width)
}

func skuColumnByContent(cells [][]string, width int, threshold float64) int {
	if len(cells) == 0 {
		return -1
	}
	for col := 0; col < width; col++ {
		matched := 0
		for _, row := range cells {
			if skuCellRe.MatchString(row[col]) {
				matched++
			}
		}
		if float64(matched)/float64(len(cells)) > threshold {
			return col
		}
	}
	return -1
}

// padRows copies rows, padding or cutting each one to width cells.
func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return out
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
