package upsert

import (
	"sync"

	"github.com/viyadb/viyadb/pkg/bitset"
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/schema"
)

// guardBucket is one companion-key's observed set of guarded-dimension
// codes, plus the exact companion tuple it was built from (hash
// collisions are resolved the same way tupleOffsets resolves them).
type guardBucket struct {
	companion []coltype.AnyNum
	observed  *bitset.Metric
}

// cardinalityGuard enforces "at most Limit distinct values of the guarded
// dimension per companion-dims key; excess values remap to __exceeded".
type cardinalityGuard struct {
	mu            sync.Mutex
	spec          *schema.CardinalityGuardSpec
	guardedDimIdx int
	companionIdx  []int
	buckets       map[tupleKey][]*guardBucket
}

func newCardinalityGuard(t *schema.Table, dimIdx int) *cardinalityGuard {
	dim := t.Dimensions[dimIdx]
	if dim.CardinalityGuard == nil {
		return nil
	}
	companionIdx := make([]int, 0, len(dim.CardinalityGuard.CompanionDims))
	for _, name := range dim.CardinalityGuard.CompanionDims {
		cd, _ := t.Dimension(name)
		companionIdx = append(companionIdx, cd.Index)
	}
	return &cardinalityGuard{
		spec:          dim.CardinalityGuard,
		guardedDimIdx: dimIdx,
		companionIdx:  companionIdx,
		buckets:       map[tupleKey][]*guardBucket{},
	}
}

// apply checks whether code (already dictionary-resolved for the guarded
// dimension) should be remapped to the sentinel, given the row's full
// dimension tuple. If the code is accepted, it is recorded as observed.
func (g *cardinalityGuard) apply(buf []byte, dims []coltype.AnyNum, code uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	companion := make([]coltype.AnyNum, len(g.companionIdx))
	for i, idx := range g.companionIdx {
		companion[i] = dims[idx]
	}

	buf = encodeTuple(buf, companion)
	key := hashTuple(buf)

	var bucket *guardBucket
	for _, b := range g.buckets[key] {
		if tuplesEqual(b.companion, companion) {
			bucket = b
			break
		}
	}
	if bucket == nil {
		bucket = &guardBucket{companion: companion, observed: bitset.New()}
		g.buckets[key] = append(g.buckets[key], bucket)
	}

	v := uint32(code)
	if bucket.observed.Contains(v) {
		return code
	}
	if bucket.observed.Cardinality() >= uint64(g.spec.Limit) {
		return 0 // remap to __exceeded
	}
	bucket.observed.Add(v)
	return code
}
