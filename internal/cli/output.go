// Package cli renders answers, traces and stats for the terminal and runs the
// interactive loop.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or empty.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

var heading = color.New(color.FgCyan, color.Bold)

func writeHeading(w io.Writer, title string) {
	heading.Fprintf(w, "=== %s ===\n", title)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StepsFromTrace returns the answer's numbered steps recorded in the
// final_answer entry.
func StepsFromTrace(trace []models.TraceEntry) []string {
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Step != models.StepFinalAnswer {
			continue
		}
		steps, _ := trace[i].Details["trace"].([]string)
		return steps
	}
	return nil
}

// WriteAnswer writes a handled query to w in the given format.
func WriteAnswer(w io.Writer, resp models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w)
	writeHeading(w, "FINAL ANSWER")
	fmt.Fprintln(w, resp.Answer)
	if len(resp.Steps) > 0 {
		fmt.Fprintln(w)
		writeHeading(w, "STEPS")
		for _, s := range resp.Steps {
			fmt.Fprintln(w, s)
		}
	}
	fmt.Fprintln(w)
	writeHeading(w, "TRACE")
	fmt.Fprintln(w, FormatTrace(resp.Trace))
	fmt.Fprintln(w)
	return nil
}

// FormatTrace renders one line per trace entry: timestamp, step and details.
func FormatTrace(trace []models.TraceEntry) string {
	lines := make([]string, 0, len(trace))
	for _, e := range trace {
		details, err := json.Marshal(e.Details)
		if err != nil {
			details = []byte(fmt.Sprintf("%v", e.Details))
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Step, utils.Truncate(string(details), 500)))
	}
	return strings.Join(lines, "\n")
}

// WriteSessionStats writes one session's stats.
func WriteSessionStats(w io.Writer, stats models.SessionStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintln(w)
	writeHeading(w, "SESSION STATISTICS")
	fmt.Fprintf(w, "Total queries: %d\n", stats.TotalQueries)
	fmt.Fprintf(w, "Tool usage: %s\n", formatUsage(stats.ToolUsage))
	fmt.Fprintf(w, "Total latency: %.3fs\n", stats.TotalLatency)
	fmt.Fprintf(w, "Session ID: %s\n\n", stats.SessionID)
	return nil
}

// WriteAggregateStats writes stats summed over a server's sessions.
func WriteAggregateStats(w io.Writer, stats models.AggregateStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintln(w)
	writeHeading(w, "SERVER STATISTICS")
	fmt.Fprintf(w, "Sessions: %d\n", stats.Sessions)
	fmt.Fprintf(w, "Total queries: %d\n", stats.TotalQueries)
	fmt.Fprintf(w, "Tool usage: %s\n", formatUsage(stats.ToolUsage))
	fmt.Fprintf(w, "Total latency: %.3fs\n\n", stats.TotalLatency)
	return nil
}

// WriteHits writes knowledge base search results.
func WriteHits(w io.Writer, query string, hits []models.Hit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []models.Hit{}
		}
		return writeJSON(w, map[string]any{"query": query, "results": hits})
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %s\n", i+1, h.Score, h.DocID)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Text, 200))
	}
	return nil
}

// formatUsage renders counters sorted by name, e.g. "api=0 csv=2 web=1".
func formatUsage(usage map[string]int) string {
	keys := make([]string, 0, len(usage))
	for k := range usage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, usage[k])
	}
	return strings.Join(parts, " ")
}
