package models

// WebResult is a single web search result. Different search providers fill
// different text fields; Snippet, Content, and Description are tried in order.
type WebResult struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Text returns the first non-empty descriptive field.
func (r WebResult) Text() string {
	switch {
	case r.Snippet != "":
		return r.Snippet
	case r.Content != "":
		return r.Content
	default:
		return r.Description
	}
}

// ToolResult is the outcome of executing the selected tool. Execution failures
// are carried in Error instead of being returned as Go errors so that
// composition can still produce an answer.
type ToolResult struct {
	Tool     string          `json:"tool"`
	Rows     []ProductRow    `json:"rows,omitempty"`
	Web      []WebResult     `json:"web,omitempty"`
	API      any             `json:"api,omitempty"`
	Error    string          `json:"error,omitempty"`
	Attempts []LookupAttempt `json:"attempts,omitempty"`
	LatencyS float64         `json:"latency_s"`
}

// HasAPIData reports whether an API call returned a usable, non-error response.
func (r *ToolResult) HasAPIData() bool {
	if r == nil || r.Error != "" || r.API == nil {
		return false
	}
	if m, ok := r.API.(map[string]any); ok {
		if _, failed := m["error"]; failed {
			return false
		}
		return len(m) > 0
	}
	if list, ok := r.API.([]any); ok {
		return len(list) > 0
	}
	return true
}
