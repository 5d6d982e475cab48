package exec

import (
	"github.com/viyadb/viyadb/pkg/bitset"
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/filter"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/rollup"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
)

// Result is a formatted query result ready for the caller to encode.
type Result struct {
	Columns []string
	Rows    [][]string
}

// runAggregate executes an aggregate query: scan, group, HAVING, sort,
// skip/limit.
func runAggregate(p *query.Plan, st *store.Store, dicts []*dict.Dictionary) (*Result, error) {
	t := p.Table
	numDims := len(t.Dimensions)

	dimOutputs, metOutputs := splitOutputs(p.Outputs)
	neededMetrics := neededMetricIndices(t, metOutputs)

	groups := newGroupTable()
	segments := st.Snapshot()

	for _, seg := range segments {
		if !filter.SegmentMayMatch(p.Filter, segmentStats(seg, numDims)) {
			continue
		}
		size := seg.Size()
		for i := 0; i < size; i++ {
			src := tupleSource{seg: seg, idx: i, numDims: numDims}
			if !p.Filter.Accepts(src) {
				continue
			}

			dimVals := make([]coltype.AnyNum, len(dimOutputs))
			for j, out := range dimOutputs {
				v := seg.Dim(i, out.Index)
				if out.Granularity != nil {
					v = truncateDim(t.Dimensions[out.Index], *out.Granularity, v)
				}
				dimVals[j] = v
			}

			row := groups.lookupOrCreate(dimVals, func() *groupRow {
				return newGroupRow(t, neededMetrics)
			})

			for _, midx := range neededMetrics {
				m := t.Metrics[midx]
				cell := seg.Metric(i, midx)
				if m.Agg == schema.Bitset {
					row.bm[midx].Update(cell.BM)
					continue
				}
				row.accum[midx] = m.Update(row.accum[midx], cell.Num)
			}
		}
	}

	rows := make([][]string, 0, len(groups.order))
	for _, g := range groups.order {
		formatted, raw := formatGroupRow(t, p.Outputs, dicts, g)
		if p.Having != nil && !p.Having.Accepts(rowSource(raw)) {
			continue
		}
		rows = append(rows, formatted)
	}

	sortRows(rows, p.Sort, p.Outputs, t)
	rows = applySkipLimit(rows, p.Skip, p.Limit)

	return &Result{Columns: outputNames(p.Outputs), Rows: rows}, nil
}

// truncateDim applies a query-time rollup to a stored time dimension
// value, converting to microseconds for Truncate and back to the
// dimension's declared storage precision.
func truncateDim(dim *schema.Dimension, gran rollup.Unit, v coltype.AnyNum) coltype.AnyNum {
	micros := int64(v.Uint64())
	if dim.TimePrecision == coltype.Seconds {
		micros *= 1_000_000
	}
	truncated := rollup.Truncate(gran, micros)
	if dim.TimePrecision == coltype.Seconds {
		return coltype.NewUint(uint64(truncated / 1_000_000))
	}
	return coltype.NewUint(uint64(truncated))
}

func splitOutputs(outputs []query.OutputColumn) (dims, mets []query.OutputColumn) {
	for _, o := range outputs {
		if o.IsDim {
			dims = append(dims, o)
		} else {
			mets = append(mets, o)
		}
	}
	return
}

// neededMetricIndices collects every table metric index an aggregate must
// accumulate: the selected metric outputs, plus any AVG output's
// companion COUNT metric even when that companion isn't itself selected.
func neededMetricIndices(t *schema.Table, metOutputs []query.OutputColumn) []int {
	seen := map[int]bool{}
	var out []int
	add := func(idx int) {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	for _, o := range metOutputs {
		add(o.Index)
		m := t.Metrics[o.Index]
		if m.Agg == schema.Avg {
			if companion, ok := t.Metric(m.Field); ok {
				add(companion.Index)
			}
		}
	}
	return out
}

func newGroupRow(t *schema.Table, needed []int) *groupRow {
	row := &groupRow{
		accum: make([]coltype.AnyNum, len(t.Metrics)),
		bm:    make([]*bitset.Metric, len(t.Metrics)),
	}
	for _, idx := range needed {
		m := t.Metrics[idx]
		if m.Agg == schema.Bitset {
			row.bm[idx] = bitset.New()
		} else {
			row.accum[idx] = m.Init()
		}
	}
	return row
}

// formatGroupRow renders one group's formatted output row, and also
// returns the raw per-output AnyNum values for HAVING evaluation: for
// AVG outputs the raw value is the already-divided float, matching what
// HAVING compares against.
func formatGroupRow(t *schema.Table, outputs []query.OutputColumn, dicts []*dict.Dictionary, g *groupRow) ([]string, []coltype.AnyNum) {
	formatted := make([]string, len(outputs))
	raw := make([]coltype.AnyNum, len(outputs))
	dimPos := 0
	for i, out := range outputs {
		if out.IsDim {
			dim := t.Dimensions[out.Index]
			v := g.dims[dimPos]
			dimPos++
			formatted[i] = formatDim(dim, out, dicts[out.Index], v)
			raw[i] = v
			continue
		}
		m := t.Metrics[out.Index]
		var count uint64
		var bmCard uint64
		if m.Agg == schema.Avg {
			if companion, ok := t.Metric(m.Field); ok {
				count = g.accum[companion.Index].Uint64()
			}
		}
		if m.Agg == schema.Bitset && g.bm[out.Index] != nil {
			bmCard = g.bm[out.Index].Cardinality()
		}
		formatted[i] = formatMetric(m, g.accum[out.Index], count, bmCard)
		raw[i] = metricRawValue(m, g.accum[out.Index], count, bmCard)
	}
	return formatted, raw
}

func metricRawValue(m *schema.Metric, sumVal coltype.AnyNum, count, bmCard uint64) coltype.AnyNum {
	switch m.Agg {
	case schema.Bitset:
		return coltype.NewUint(bmCard)
	case schema.Avg:
		if count == 0 {
			return coltype.NewFloat(0)
		}
		return coltype.NewFloat(sumVal.As(m.NumType) / float64(count))
	default:
		return sumVal
	}
}

func outputNames(outputs []query.OutputColumn) []string {
	names := make([]string, len(outputs))
	for i, o := range outputs {
		names[i] = o.Name
	}
	return names
}

// segmentStats bridges a segment's real per-dimension min/max into the
// filter package's range-pruning check. Metric columns (index >= numDims
// in the unified filter index space) have no stored range, so they never
// prune.
func segmentStats(seg *store.Segment, numDims int) filter.SegmentStats {
	return func(idx int) filter.DimRange {
		if idx >= numDims {
			return filter.DimRange{}
		}
		s := seg.Stats(idx)
		return filter.DimRange{Valid: s.Valid, Min: s.Min, Max: s.Max}
	}
}
