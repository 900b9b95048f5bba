// Package candidate derives the ordered lookup candidates tried against the catalog.
package candidate

import (
	"regexp"
	"strings"
)

// Labels in the order candidates are produced.
const (
	LabelRaw         = "raw"
	LabelCleaned     = "cleaned"
	LabelSKU         = "sku"
	LabelProductTerm = "product-term"
)

// Candidate is one normalized form of a user query.
type Candidate struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

var (
	nonCleanRe  = regexp.MustCompile(`[^a-z0-9\s-]`)
	skuMarkerRe = regexp.MustCompile(`(?i)\bsku[-\s:]*([a-z0-9-]+)\b`)
	bareSKURe   = regexp.MustCompile(`^[a-z]{2,}\d{2,}(-[a-z0-9]+)?$`)
	priceOfRe   = regexp.MustCompile(`price of\s+([a-z0-9\-\s]+)`)
)

// Normalize returns the candidates for raw in lookup order. The first
// candidate is always raw itself, unchanged.
func Normalize(raw string) []Candidate {
	out := []Candidate{{Label: LabelRaw, Query: raw}}

	cleaned := Clean(raw)
	if cleaned != "" && cleaned != raw {
		out = append(out, Candidate{Label: LabelCleaned, Query: cleaned})
	}

	if sku := ExtractSKU(raw); sku != "" && !seen(out, sku) {
		out = append(out, Candidate{Label: LabelSKU, Query: sku})
	}

	if term := ProductTerm(raw); term != "" && !seen(out, term) {
		out = append(out, Candidate{Label: LabelProductTerm, Query: term})
	}
	return out
}

// Clean lower-cases s and keeps only letters, digits, whitespace and hyphens.
func Clean(s string) string {
	return strings.TrimSpace(nonCleanRe.ReplaceAllString(strings.ToLower(s), ""))
}

// ExtractSKU returns the upper-cased SKU token in s, or "" when there is none.
// An explicit "sku" marker wins; otherwise the whole cleaned query must look like a SKU.
func ExtractSKU(s string) string {
	if m := skuMarkerRe.FindStringSubmatch(strings.ToLower(s)); m != nil {
		return strings.ToUpper(m[1])
	}
	if c := Clean(s); bareSKURe.MatchString(c) {
		return strings.ToUpper(c)
	}
	return ""
}

// ProductTerm returns the product named after "price of", or the cleaned query.
func ProductTerm(s string) string {
	lc := strings.ToLower(s)
	term := lc
	if m := priceOfRe.FindStringSubmatch(lc); m != nil {
		term = m[1]
	}
	return strings.TrimSpace(nonCleanRe.ReplaceAllString(term, ""))
}

func seen(cands []Candidate, q string) bool {
	key := strings.ToLower(strings.TrimSpace(q))
	for _, c := range cands {
		if strings.ToLower(strings.TrimSpace(c.Query)) == key {
			return true
		}
	}
	return false
}
