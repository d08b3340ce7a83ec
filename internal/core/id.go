package core

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator hands out time-based transaction ids (unix milliseconds, decimal).
// Ids are strictly increasing per generator, so two appends inside the same
// millisecond still get distinct values.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator reading the wall clock. A nil now uses time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a new id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe raises the generator floor so ids already present in a store are never
// handed out again.
func (g *IDGenerator) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if n > g.last {
		g.last = n
	}
	g.mu.Unlock()
}
