package collection

import "sync/atomic"

// IDGenerator hands out dense, strictly increasing document IDs.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator returns a generator whose first ID is next.
func NewIDGenerator(next uint64) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(next)
	return g
}

// Reserve atomically reserves n contiguous IDs and returns the first one.
func (g *IDGenerator) Reserve(n uint64) uint64 {
	return g.next.Add(n) - n
}

// Next returns the ID the next reservation will start at.
func (g *IDGenerator) Next() uint64 {
	return g.next.Load()
}
