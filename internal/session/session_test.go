package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentroute/internal/decision"
)

func TestContext(t *testing.T) {
	c := New()
	require.NotEmpty(t, c.ID())

	snap := c.Snapshot()
	assert.Equal(t, map[string]int{"csv": 0, "web": 0, "api": 0}, snap.ToolUsage)
	_, ok := c.LastDecision()
	assert.False(t, ok)

	c.RecordQuery("q1", time.Now())
	c.RecordQuery("q2", time.Now())
	c.AddLatency(1500 * time.Millisecond)
	c.IncrementTool(CounterCSV)
	c.IncrementTool(CounterCSV)
	c.IncrementTool("kb")
	c.SetLastDecision(decision.Decision{Tool: decision.ToolCSV})

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalQueries)
	assert.Equal(t, 2, stats.ToolUsage["csv"])
	assert.NotContains(t, stats.ToolUsage, "kb")
	assert.InDelta(t, 1.5, stats.TotalLatency, 1e-9)
	assert.Equal(t, c.ID(), stats.SessionID)

	d, ok := c.LastDecision()
	require.True(t, ok)
	assert.Equal(t, decision.ToolCSV, d.Tool)

	// snapshots are copies
	snap = c.Snapshot()
	snap.ToolUsage["csv"] = 99
	assert.Equal(t, 2, c.Stats().ToolUsage["csv"])
	assert.Equal(t, 2, snap.HistoryLen)
	assert.Len(t, c.History(), 2)
}

func TestContext_concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordQuery("q", time.Now())
			c.IncrementTool(CounterWeb)
			c.AddLatency(time.Millisecond)
		}()
	}
	wg.Wait()
	stats := c.Stats()
	assert.Equal(t, 50, stats.TotalQueries)
	assert.Equal(t, 50, stats.ToolUsage["web"])
	assert.InDelta(t, 0.05, stats.TotalLatency, 1e-9)
}

func TestStore(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)

	a := s.GetOrCreate("abc")
	assert.Equal(t, "abc", a.ID())
	assert.Same(t, a, s.GetOrCreate("abc"))

	b := s.GetOrCreate("")
	assert.NotEqual(t, "abc", b.ID())
	assert.Equal(t, 2, s.Len())

	got, ok := s.Get(b.ID())
	require.True(t, ok)
	assert.Same(t, b, got)

	s.Delete("abc")
	_, ok = s.Get("abc")
	assert.False(t, ok)
}

func TestStore_expiry(t *testing.T) {
	s := NewStore(20*time.Millisecond, time.Hour)
	s.GetOrCreate("short")
	time.Sleep(40 * time.Millisecond)
	_, ok := s.Get("short")
	assert.False(t, ok)
}

func TestStore_Aggregate(t *testing.T) {
	s := NewStore(time.Minute, time.Minute)
	a := s.GetOrCreate("a")
	b := s.GetOrCreate("b")
	a.RecordQuery("q1", time.Now())
	b.RecordQuery("q2", time.Now())
	b.RecordQuery("q3", time.Now())
	a.IncrementTool(CounterWeb)
	b.IncrementTool(CounterWeb)
	b.IncrementTool(CounterAPI)
	b.AddLatency(500 * time.Millisecond)

	agg := s.Aggregate()
	assert.Equal(t, 2, agg.Sessions)
	assert.Equal(t, 3, agg.TotalQueries)
	assert.Equal(t, map[string]int{"csv": 0, "web": 2, "api": 1}, agg.ToolUsage)
	assert.InDelta(t, 0.5, agg.TotalLatency, 1e-9)
}
