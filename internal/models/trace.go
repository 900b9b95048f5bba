package models

import "time"

// Trace step names emitted by the pipeline, in execution order.
const (
	StepRetrieval   = "retrieval"
	StepDecision    = "decision"
	StepToolCall    = "tool_call"
	StepFinalAnswer = "final_answer"
)

// TraceEntry is one step of a handled query.
type TraceEntry struct {
	Step      string         `json:"step"`
	Timestamp time.Time      `json:"ts"`
	Details   map[string]any `json:"details"`
}

// SessionStats summarizes a session.
type SessionStats struct {
	TotalQueries int            `json:"total_queries"`
	ToolUsage    map[string]int `json:"tool_usage"`
	TotalLatency float64        `json:"total_latency"`
	SessionID    string         `json:"session_id"`
}

// SessionSnapshot is a read-only view of session state handed to prompts.
type SessionSnapshot struct {
	SessionID    string         `json:"session_id"`
	ToolUsage    map[string]int `json:"tool_usage"`
	HistoryLen   int            `json:"history_len"`
	TotalLatency float64        `json:"total_latency"`
}

// TotalToolCalls sums the tool usage counters.
func (s SessionSnapshot) TotalToolCalls() int {
	n := 0
	for _, c := range s.ToolUsage {
		n += c
	}
	return n
}

// AggregateStats sums the stats of every live session.
type AggregateStats struct {
	Sessions     int            `json:"sessions"`
	TotalQueries int            `json:"total_queries"`
	ToolUsage    map[string]int `json:"tool_usage"`
	TotalLatency float64        `json:"total_latency"`
}
