package catalog

import (
	"time"

	"github.com/hyperjump/agentroute/internal/candidate"
	"github.com/hyperjump/agentroute/internal/models"
)

// Looker answers a single catalog query.
type Looker interface {
	Lookup(query string) ([]models.ProductRow, time.Duration)
}

// LookupResult is the outcome of trying every query candidate.
type LookupResult struct {
	Rows     []models.ProductRow
	Elapsed  time.Duration
	Attempts []models.LookupAttempt
}

// LookupCandidates tries the normalized candidates of query in order and
// stops at the first one that returns rows. Every try is recorded.
func LookupCandidates(l Looker, query string) LookupResult {
	var res LookupResult
	for _, c := range candidate.Normalize(query) {
		rows, elapsed := l.Lookup(c.Query)
		res.Elapsed += elapsed
		res.Attempts = append(res.Attempts, models.LookupAttempt{
			Label:     c.Label,
			Query:     c.Query,
			LatencyS:  elapsed.Seconds(),
			RowsFound: len(rows),
		})
		if len(rows) > 0 {
			res.Rows = rows
			return res
		}
	}
	return res
}
