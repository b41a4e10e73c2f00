package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined generation ids in order, then
// falls back to numbered ids once the list is exhausted.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedIDGenerator("gen-1", "gen-2")
//	gen.NewID() // "gen-1"
//	gen.NewID() // "gen-2"
//	gen.NewID() // "test-id-3"
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// NewID returns the next id.
func (g *FixedIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("test-id-%d", g.idx)
}
