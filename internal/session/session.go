// Package session tracks per-session query history and tool usage.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/models"
)

// Tool usage counters.
const (
	CounterCSV = "csv"
	CounterWeb = "web"
	CounterAPI = "api"
)

// QueryRecord is one entry of the session history.
type QueryRecord struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is the mutable state of one session. All methods are safe for
// concurrent use.
type Context struct {
	mu           sync.Mutex
	id           string
	history      []QueryRecord
	toolUsage    map[string]int
	totalLatency time.Duration
	lastDecision *decision.Decision
}

// New returns a session with a random ID.
func New() *Context {
	return NewWithID(uuid.NewString())
}

// NewWithID returns a session identified by id.
func NewWithID(id string) *Context {
	return &Context{
		id:        id,
		toolUsage: map[string]int{CounterCSV: 0, CounterWeb: 0, CounterAPI: 0},
	}
}

func (c *Context) ID() string { return c.id }

func (c *Context) RecordQuery(q string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, QueryRecord{Query: q, Timestamp: ts})
}

func (c *Context) AddLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalLatency += d
}

// IncrementTool bumps the counter for tool. Names other than csv, web and
// api are ignored.
func (c *Context) IncrementTool(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.toolUsage[tool]; ok {
		c.toolUsage[tool]++
	}
}

func (c *Context) SetLastDecision(d decision.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastDecision = &d
}

// LastDecision returns the most recent decision, if any.
func (c *Context) LastDecision() (decision.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastDecision == nil {
		return decision.Decision{}, false
	}
	return *c.lastDecision, true
}

// History returns a copy of the query history.
func (c *Context) History() []QueryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]QueryRecord(nil), c.history...)
}

// Snapshot returns a copy of the state used by prompts.
func (c *Context) Snapshot() *models.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &models.SessionSnapshot{
		SessionID:    c.id,
		ToolUsage:    c.usageLocked(),
		HistoryLen:   len(c.history),
		TotalLatency: c.totalLatency.Seconds(),
	}
}

// Stats summarizes the session.
func (c *Context) Stats() models.SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.SessionStats{
		TotalQueries: len(c.history),
		ToolUsage:    c.usageLocked(),
		TotalLatency: c.totalLatency.Seconds(),
		SessionID:    c.id,
	}
}

func (c *Context) usageLocked() map[string]int {
	out := make(map[string]int, len(c.toolUsage))
	for k, v := range c.toolUsage {
		out[k] = v
	}
	return out
}
