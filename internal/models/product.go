package models

// CanonicalFields lists the catalog display columns in projection order.
var CanonicalFields = []string{"sku", "name", "category", "price", "currency", "stock", "description"}

// ProductRow is a catalog row projected to display fields. Lower-cased
// shadow fields used for matching never appear here.
type ProductRow map[string]string

// Get returns the value for field, or "" when absent.
func (r ProductRow) Get(field string) string {
	return r[field]
}

// LookupAttempt records one candidate tried by the catalog lookup driver.
type LookupAttempt struct {
	Label     string  `json:"attempt"`
	Query     string  `json:"query"`
	LatencyS  float64 `json:"latency_s"`
	RowsFound int     `json:"rows"`
}
