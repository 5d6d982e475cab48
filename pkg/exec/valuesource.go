// Package exec implements the query executor: segment-skip pruning,
// filtered tuple scan, group-by aggregation with query-time rollup,
// HAVING, sort, skip/limit, and row formatting.
package exec

import (
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/store"
)

// tupleSource is a filter.ValueSource over one stored tuple: dimension
// columns first, then metric columns, matching query.TableResolver's
// unified index space.
type tupleSource struct {
	seg     *store.Segment
	idx     int
	numDims int
}

func (t tupleSource) Value(col int) coltype.AnyNum {
	if col < t.numDims {
		return t.seg.Dim(t.idx, col)
	}
	return t.seg.Metric(t.idx, col-t.numDims).Num
}

// rowSource is a filter.ValueSource over an aggregated output row, used
// to evaluate HAVING against resolved output-column positions.
type rowSource []coltype.AnyNum

func (r rowSource) Value(col int) coltype.AnyNum { return r[col] }
