package exec

import (
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/filter"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
)

// runSelect executes an ungrouped query: one output row per matching
// stored tuple, no aggregation.
func runSelect(p *query.Plan, st *store.Store, dicts []*dict.Dictionary) (*Result, error) {
	t := p.Table
	numDims := len(t.Dimensions)

	rows := make([][]string, 0)

	for _, seg := range st.Snapshot() {
		if !filter.SegmentMayMatch(p.Filter, segmentStats(seg, numDims)) {
			continue
		}
		size := seg.Size()
		for i := 0; i < size; i++ {
			src := tupleSource{seg: seg, idx: i, numDims: numDims}
			if !p.Filter.Accepts(src) {
				continue
			}
			rows = append(rows, formatTuple(t, p.Outputs, dicts, seg, i))
		}
	}

	sortRows(rows, p.Sort, p.Outputs, t)
	rows = applySkipLimit(rows, p.Skip, p.Limit)

	return &Result{Columns: outputNames(p.Outputs), Rows: rows}, nil
}

// formatTuple renders one stored tuple's selected columns, applying
// query-time time rollup to time dimension outputs the same way the
// aggregate path does, just without a group to merge into.
func formatTuple(t *schema.Table, outputs []query.OutputColumn, dicts []*dict.Dictionary, seg *store.Segment, idx int) []string {
	row := make([]string, len(outputs))
	for i, out := range outputs {
		if out.IsDim {
			dim := t.Dimensions[out.Index]
			v := seg.Dim(idx, out.Index)
			if out.Granularity != nil {
				v = truncateDim(dim, *out.Granularity, v)
			}
			row[i] = formatDim(dim, out, dicts[out.Index], v)
			continue
		}
		m := t.Metrics[out.Index]
		cell := seg.Metric(idx, out.Index)
		var bmCard uint64
		var count uint64
		if m.Agg == schema.Bitset && cell.BM != nil {
			bmCard = cell.BM.Cardinality()
		}
		if m.Agg == schema.Avg {
			if companion, ok := t.Metric(m.Field); ok {
				count = seg.Metric(idx, companion.Index).Num.Uint64()
			}
		}
		row[i] = formatMetric(m, cell.Num, count, bmCard)
	}
	return row
}
