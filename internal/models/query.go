package models

import (
	"fmt"
	"strings"
)

// QueryRequest is the body of a query request.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate trims the query and rejects empty input.
func (q *QueryRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	q.SessionID = strings.TrimSpace(q.SessionID)
	return nil
}

// QueryResponse is the answer to a handled query.
type QueryResponse struct {
	Answer    string       `json:"answer"`
	Steps     []string     `json:"steps"`
	Trace     []TraceEntry `json:"trace"`
	SessionID string       `json:"session_id"`
}
