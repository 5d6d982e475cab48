package exec

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/viyadb/viyadb/pkg/bitset"
	"github.com/viyadb/viyadb/pkg/coltype"
)

// groupRow is one aggregated output row under construction during a scan:
// the projected (and possibly rolled-up) dimension values that formed the
// group key, plus per-table-metric accumulators indexed by the metric's
// schema index.
type groupRow struct {
	dims  []coltype.AnyNum
	accum []coltype.AnyNum
	bm    []*bitset.Metric // only populated for BITSET metric indices
}

type groupKey uint64

type groupBucket struct {
	dims []coltype.AnyNum
	row  *groupRow
}

// groupTable is an open hash map from projected dimension tuple to its
// aggregated row, collision-resolved by exact comparison the same way the
// upsert engine's tuple index is.
type groupTable struct {
	buckets map[groupKey][]groupBucket
	order   []*groupRow // insertion order, so output is deterministic given a fixed scan order
}

func newGroupTable() *groupTable {
	return &groupTable{buckets: map[groupKey][]groupBucket{}}
}

func encodeDims(buf []byte, dims []coltype.AnyNum) []byte {
	need := len(dims) * 8
	if cap(buf) < need {
		buf = make([]byte, need)
	} else {
		buf = buf[:need]
	}
	for i, d := range dims {
		binary.LittleEndian.PutUint64(buf[i*8:], d.Uint64())
	}
	return buf
}

func dimsEqual(a, b []coltype.AnyNum) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Uint64() != b[i].Uint64() {
			return false
		}
	}
	return true
}

// lookupOrCreate returns the group for dims, creating it via newRow if
// absent. dims must not be mutated by the caller afterward; ownership of
// the slice passes to the table on creation.
func (g *groupTable) lookupOrCreate(dims []coltype.AnyNum, newRow func() *groupRow) *groupRow {
	var buf []byte
	buf = encodeDims(buf, dims)
	key := groupKey(xxhash.Sum64(buf))

	for _, b := range g.buckets[key] {
		if dimsEqual(b.dims, dims) {
			return b.row
		}
	}

	row := newRow()
	row.dims = dims
	g.buckets[key] = append(g.buckets[key], groupBucket{dims: dims, row: row})
	g.order = append(g.order, row)
	return row
}
