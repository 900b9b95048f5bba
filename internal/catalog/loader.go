package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrLoadFailure is returned when the catalog file is missing or no parsing
// strategy yields a table.
var ErrLoadFailure = errors.New("catalog load failure")

// sniffLines is how many leading lines the delimiter sniffer inspects.
const sniffLines = 20

var (
	sniffDelims   = []rune{',', '\t', ';', '|'}
	manualSplitRe = regexp.MustCompile(`\s{2,}|\t+|\s+`)
)

// Load reads the catalog at path. Spreadsheets are read with excelize;
// everything else is treated as delimited text and tried with several
// strategies until one produces at least two columns.
func Load(path string, opts NormalizeOptions) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err := readXLSX(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
		}
		return Normalize(header, rows, opts), nil
	}
	header, rows, err := readText(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailure, path, err)
	}
	return Normalize(header, rows, opts), nil
}

func readXLSX(content []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return rows[0], rows[1:], nil
}

type strategy struct {
	name  string
	parse func([]byte) ([]string, [][]string, error)
}

func textStrategies() []strategy {
	return []strategy{
		{"sniffed", func(b []byte) ([]string, [][]string, error) { return readDelimited(b, sniffDelimiter(b)) }},
		{"whitespace", readWhitespace},
		{"comma", func(b []byte) ([]string, [][]string, error) { return readDelimited(b, ',') }},
		{"semicolon", func(b []byte) ([]string, [][]string, error) { return readDelimited(b, ';') }},
	}
}

func readText(content []byte) ([]string, [][]string, error) {
	var lastErr error
	for _, s := range textStrategies() {
		header, rows, err := s.parse(content)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", s.name, err)
			continue
		}
		if len(header) >= 2 {
			return header, rows, nil
		}
	}
	header, rows, err := readManual(content)
	if err != nil {
		if lastErr != nil {
			return nil, nil, fmt.Errorf("%w (last strategy error: %v)", err, lastErr)
		}
		return nil, nil, err
	}
	return header, rows, nil
}

// sniffDelimiter picks the delimiter that splits the leading lines into the
// most consistent column count greater than one.
func sniffDelimiter(content []byte) rune {
	lines := nonEmptyLines(content)
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}
	best, bestScore := ',', 0
	for _, d := range sniffDelims {
		counts := make(map[int]int)
		for _, ln := range lines {
			if n := strings.Count(ln, string(d)) + 1; n > 1 {
				counts[n]++
			}
		}
		for _, c := range counts {
			if c > bestScore {
				best, bestScore = d, c
			}
		}
	}
	return best
}

// readDelimited parses content with encoding/csv. Rows with more fields than
// the header are skipped; shorter rows are padded by Normalize.
func readDelimited(content []byte, delim rune) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var header []string
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, nil, err
		}
		if isBlank(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		if len(rec) > len(header) {
			continue
		}
		rows = append(rows, rec)
	}
	if header == nil {
		return nil, nil, errors.New("no header row")
	}
	return header, rows, nil
}

func readWhitespace(content []byte) ([]string, [][]string, error) {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return nil, nil, errors.New("no header row")
	}
	header := strings.Fields(lines[0])
	var rows [][]string
	for _, ln := range lines[1:] {
		f := strings.Fields(ln)
		if len(f) > len(header) {
			continue
		}
		rows = append(rows, f)
	}
	return header, rows, nil
}

// readManual is the last resort. The first line is the header only when it
// names a sku column; otherwise every line is data under col0..colN.
func readManual(content []byte) ([]string, [][]string, error) {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return nil, nil, errors.New("file has no data lines")
	}
	split := make([][]string, len(lines))
	for i, ln := range lines {
		split[i] = manualSplitRe.Split(ln, -1)
	}
	first := make([]string, len(split[0]))
	for i, h := range split[0] {
		first[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if contains(first, "sku") {
		return first, split[1:], nil
	}
	header := make([]string, len(split[0]))
	for i := range header {
		header[i] = fmt.Sprintf("col%d", i)
	}
	return header, split, nil
}

func nonEmptyLines(content []byte) []string {
	var out []string
	for _, ln := range strings.Split(string(content), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
