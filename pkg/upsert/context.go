package upsert

import (
	"sync"
	"sync/atomic"

	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
)

// Stats accumulates per-load ingest outcomes.
type Stats struct {
	NewRecs    uint64
	FailedRecs uint64
}

type offsetEntry struct {
	dims   []coltype.AnyNum
	offset int64
}

// Context is the per-table upsert context: the hash-map from dimension
// tuple to global offset, dictionary references, roll-up scratch,
// cardinality guards, and the optional partition filter. It is owned by
// the table for the table's lifetime.
//
// Ingest is assumed single-writer per table. Context's mutex guards
// tupleOffsets and the update counter, so TupleCount is safe to call from
// another goroutine; it does not serialize whole rows, so two concurrent
// writers could both insert the same new tuple. The ingest counters are
// atomics, so Stats is safe to call concurrently.
type Context struct {
	table *schema.Table
	store *store.Store
	dicts []*dict.Dictionary // indexed by dimension index; nil for non-string dims
	guards []*cardinalityGuard // indexed by dimension index; nil when unguarded

	mu           sync.Mutex
	tupleOffsets map[tupleKey][]offsetEntry
	updates      uint64

	partitionFilter *PartitionFilter

	newRecs    atomic.Uint64
	failedRecs atomic.Uint64
}

// New builds an upsert context for t, backed by st.
func New(t *schema.Table, st *store.Store, pf *PartitionFilter) *Context {
	c := &Context{
		table:           t,
		store:           st,
		dicts:           make([]*dict.Dictionary, len(t.Dimensions)),
		guards:          make([]*cardinalityGuard, len(t.Dimensions)),
		tupleOffsets:    map[tupleKey][]offsetEntry{},
		partitionFilter: pf,
	}
	for i, d := range t.Dimensions {
		if d.Kind == schema.StringDim {
			c.dicts[i] = dict.New(d.Cardinality)
		}
		c.guards[i] = newCardinalityGuard(t, i)
	}
	return c
}

// Dictionary returns the dictionary for a string dimension, or nil.
func (c *Context) Dictionary(dimIdx int) *dict.Dictionary { return c.dicts[dimIdx] }

// Stats returns a snapshot of the ingest counters.
func (c *Context) Stats() Stats {
	return Stats{NewRecs: c.newRecs.Load(), FailedRecs: c.failedRecs.Load()}
}

// lookup resolves a dimension tuple to its global offset, if present.
func (c *Context) lookup(buf []byte, dims []coltype.AnyNum) (int64, bool) {
	key := hashTuple(buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.tupleOffsets[key] {
		if tuplesEqual(e.dims, dims) {
			return e.offset, true
		}
	}
	return 0, false
}

// record stores a newly inserted tuple's global offset. tupleOffsets
// entries are never removed during the table's lifetime.
func (c *Context) record(buf []byte, dims []coltype.AnyNum, offset int64) {
	key := hashTuple(buf)
	// dims must be copied: the caller's slice may be a reused scratch
	// buffer for the next row.
	owned := make([]coltype.AnyNum, len(dims))
	copy(owned, dims)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tupleOffsets[key] = append(c.tupleOffsets[key], offsetEntry{dims: owned, offset: offset})
}

// TupleCount returns the number of distinct dimension tuples recorded
//.
func (c *Context) TupleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, bucket := range c.tupleOffsets {
		n += len(bucket)
	}
	return n
}
