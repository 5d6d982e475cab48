// Package bitset implements the BITSET metric kind: a compressed set of
// integer codes whose cardinality is the aggregated output value.
//
// Backed by github.com/RoaringBitmap/roaring/v2, the same library used
// elsewhere in the ecosystem for compressed integer sets over on-disk
// segments — the same shape of problem this metric solves for in-memory
// segments.
package bitset

import (
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

// Metric is a compressed bitset with a cached cardinality. The cache
// avoids recomputing GetCardinality() (an O(containers) walk) on every
// read when a hot aggregation group is updated repeatedly without being
// read back until the end of the scan.
type Metric struct {
	bm    *roaring.Bitmap
	card  atomic.Uint64
	dirty atomic.Bool
}

// New returns an empty bitset metric.
func New() *Metric {
	return &Metric{bm: roaring.New()}
}

// NewSingleton returns a one-element bitset, used by the upsert engine to
// avoid allocating an empty bitmap scratch value for a brand new tuple.
func NewSingleton(v uint32) *Metric {
	m := New()
	m.Add(v)
	return m
}

// Add inserts v into the set.
func (m *Metric) Add(v uint32) {
	m.bm.Add(v)
	m.dirty.Store(true)
}

// Contains reports whether v is a member of the set. Used by cardinality
// guards to tell "already observed" from "new distinct value".
func (m *Metric) Contains(v uint32) bool {
	return m.bm.Contains(v)
}

// Update merges other into m.
func (m *Metric) Update(other *Metric) {
	if other == nil {
		return
	}
	m.bm.Or(other.bm)
	m.dirty.Store(true)
}

// Cardinality returns the number of distinct elements, using the cached
// value when nothing has changed since the last call.
func (m *Metric) Cardinality() uint64 {
	if !m.dirty.Load() {
		return m.card.Load()
	}
	c := m.bm.GetCardinality()
	m.card.Store(c)
	m.dirty.Store(false)
	return c
}

// Optimize runs the bitmap's internal compression pass, trading a
// one-time CPU cost for smaller memory footprint and faster subsequent
// unions. Safe to call repeatedly; it is a no-op on an already-optimized
// bitmap.
func (m *Metric) Optimize() {
	m.bm.RunOptimize()
}

// Clone returns an independent copy: later updates to either metric do
// not affect the other.
func (m *Metric) Clone() *Metric {
	c := &Metric{bm: m.bm.Clone()}
	c.card.Store(m.Cardinality())
	return c
}
