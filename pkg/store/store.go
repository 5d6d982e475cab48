package store

import (
	"sync"

	"github.com/viyadb/viyadb/pkg/schema"
)

// Store is an append-only ordered vector of segments with a store-level
// reader-writer lock for list-structure changes; individual segments are
// locked independently for appends.
type Store struct {
	mu       sync.RWMutex
	table    *schema.Table
	segments []*Segment
}

// New creates an empty store; the first segment is created lazily on
// first insert.
func New(t *schema.Table) *Store {
	return &Store{table: t}
}

// LastSegment returns the tail segment, creating a new one under the
// store's exclusive lock when the store is empty or the current tail is
// full.
func (st *Store) LastSegment() *Segment {
	st.mu.RLock()
	if n := len(st.segments); n > 0 {
		tail := st.segments[n-1]
		if !tail.Full() {
			st.mu.RUnlock()
			return tail
		}
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Re-check under the exclusive lock: another writer may have already
	// rotated the tail while we waited.
	if n := len(st.segments); n > 0 {
		tail := st.segments[n-1]
		if !tail.Full() {
			return tail
		}
	}

	seg := NewSegment(st.table, st.table.SegmentSize)
	st.segments = append(st.segments, seg)
	return seg
}

// Snapshot returns a copy of the segment pointer vector under a shared
// lock — this is the scan input for a query, and segments appended after
// the snapshot is taken are not observed by that query.
func (st *Store) Snapshot() []*Segment {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Segment, len(st.segments))
	copy(out, st.segments)
	return out
}

// SegmentCount returns the number of segments currently in the store.
func (st *Store) SegmentCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.segments)
}

// SegmentAt returns the segment at list index idx. Used by the upsert
// engine, the single writer, to resolve a global offset back to its
// owning segment without going through a scan-time Snapshot.
func (st *Store) SegmentAt(idx int) *Segment {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.segments[idx]
}
