package session

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/hyperjump/agentroute/internal/models"
)

// Store keeps sessions in memory and expires them after a period without use.
type Store struct {
	cache *cache.Cache
}

// NewStore returns a store whose sessions expire after ttl without access.
// Expired sessions are purged every cleanupInterval.
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &Store{cache: cache.New(ttl, cleanupInterval)}
}

// GetOrCreate returns the session for id, creating it when absent. An empty
// id always creates a new session with a random ID.
func (s *Store) GetOrCreate(id string) *Context {
	if id != "" {
		if c, ok := s.Get(id); ok {
			return c
		}
	}
	c := New()
	if id != "" {
		c = NewWithID(id)
	}
	if err := s.cache.Add(c.ID(), c, cache.DefaultExpiration); err != nil {
		// Lost a race with another request for the same id.
		if existing, ok := s.Get(c.ID()); ok {
			return existing
		}
	}
	return c
}

// Get returns the session for id and refreshes its expiry.
func (s *Store) Get(id string) (*Context, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	c := x.(*Context)
	s.cache.Set(id, c, cache.DefaultExpiration)
	return c, true
}

// Delete drops the session for id.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Aggregate sums the stats of every unexpired session.
func (s *Store) Aggregate() models.AggregateStats {
	agg := models.AggregateStats{ToolUsage: map[string]int{CounterCSV: 0, CounterWeb: 0, CounterAPI: 0}}
	for _, item := range s.cache.Items() {
		c, ok := item.Object.(*Context)
		if !ok {
			continue
		}
		st := c.Stats()
		agg.Sessions++
		agg.TotalQueries += st.TotalQueries
		agg.TotalLatency += st.TotalLatency
		for k, v := range st.ToolUsage {
			agg.ToolUsage[k] += v
		}
	}
	return agg
}
