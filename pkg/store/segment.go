// Package store implements the columnar segment and the append-only
// store of segments.
package store

import (
	"sync"

	"github.com/viyadb/viyadb/pkg/bitset"
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/schema"
)

// DimStats tracks the per-segment min/max of one numeric or time
// dimension, used for scan-time pruning.
type DimStats struct {
	Valid    bool
	Min, Max coltype.AnyNum
}

func (s *DimStats) observe(numType coltype.NumType, v coltype.AnyNum) {
	if !s.Valid {
		s.Min, s.Max = v, v
		s.Valid = true
		return
	}
	if coltype.Compare(numType, v, s.Min) < 0 {
		s.Min = v
	}
	if coltype.Compare(numType, v, s.Max) > 0 {
		s.Max = v
	}
}

// metricColumn is one metric's parallel array across the segment's
// tuples. Exactly one of num/bm is used, per the metric's AggType.
type metricColumn struct {
	agg schema.AggType
	num []coltype.AnyNum
	bm  []*bitset.Metric
}

// Segment is a fixed-capacity block of columnar tuples: parallel arrays
// of dimensions and metrics plus per-segment min/max stats. A segment is immutable in structure once full: only
// metric-merge updates to existing tuples are allowed past that point.
type Segment struct {
	mu sync.RWMutex

	table    *schema.Table
	capacity int
	size     int

	dimCols []([]coltype.AnyNum)
	metCols []*metricColumn
	stats   []DimStats // indexed by dimension index; zero-value for non numeric/time dims
}

// NewSegment allocates a segment with capacity slots pre-sized.
func NewSegment(t *schema.Table, capacity int) *Segment {
	s := &Segment{
		table:    t,
		capacity: capacity,
		dimCols:  make([][]coltype.AnyNum, len(t.Dimensions)),
		metCols:  make([]*metricColumn, len(t.Metrics)),
		stats:    make([]DimStats, len(t.Dimensions)),
	}
	for i := range s.dimCols {
		s.dimCols[i] = make([]coltype.AnyNum, 0, capacity)
	}
	for i, m := range t.Metrics {
		mc := &metricColumn{agg: m.Agg}
		if m.Agg == schema.Bitset {
			mc.bm = make([]*bitset.Metric, 0, capacity)
		} else {
			mc.num = make([]coltype.AnyNum, 0, capacity)
		}
		s.metCols[i] = mc
	}
	return s
}

// Full reports whether the segment has reached capacity.
func (s *Segment) Full() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size >= s.capacity
}

// Size returns the current tuple count under a shared lock.
func (s *Segment) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Insert appends one tuple under an exclusive segment lock and updates
// the segment's dimension stats. Returns the tuple's index within the
// segment, or -1 if the segment is full.
func (s *Segment) Insert(dims []coltype.AnyNum, mets []MetricCell) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size >= s.capacity {
		return -1
	}
	idx := s.size
	for i, d := range s.table.Dimensions {
		s.dimCols[i] = append(s.dimCols[i], dims[i])
		if statsNumType, ok := statsType(d); ok {
			s.stats[i].observe(statsNumType, dims[i])
		}
	}
	for i, m := range s.table.Metrics {
		if m.Agg == schema.Bitset {
			s.metCols[i].bm = append(s.metCols[i].bm, mets[i].BM)
		} else {
			s.metCols[i].num = append(s.metCols[i].num, mets[i].Num)
		}
	}
	s.size++
	return idx
}

// Update applies a metric-merge to an existing tuple at tupleIdx under an
// exclusive segment lock.
func (s *Segment) Update(tupleIdx int, mets []MetricCell) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.table.Metrics {
		if m.Agg == schema.Bitset {
			s.metCols[i].bm[tupleIdx].Update(mets[i].BM)
			continue
		}
		s.metCols[i].num[tupleIdx] = m.Update(s.metCols[i].num[tupleIdx], mets[i].Num)
	}
}

// Dim returns the tuple's value for dimension index i under a shared
// lock.
func (s *Segment) Dim(tupleIdx, dimIdx int) coltype.AnyNum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimCols[dimIdx][tupleIdx]
}

// Metric returns the tuple's value for metric index i under a shared
// lock. For BITSET metrics, BM is non-nil and Num is the zero value.
func (s *Segment) Metric(tupleIdx, metIdx int) MetricCell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mc := s.metCols[metIdx]
	if mc.agg == schema.Bitset {
		return MetricCell{BM: mc.bm[tupleIdx]}
	}
	return MetricCell{Num: mc.num[tupleIdx]}
}

// Stats returns the dimension's min/max stats for this segment.
func (s *Segment) Stats(dimIdx int) DimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats[dimIdx]
}

// MetricCell holds one tuple's value for one metric column: exactly one
// of Num/BM is meaningful, per the metric's AggType.
type MetricCell struct {
	Num coltype.AnyNum
	BM  *bitset.Metric
}

// statsType returns the NumType to use for comparing this dimension's
// values, and whether the dimension participates in segment stats at all
// (only Numeric and Time dimensions do).
func statsType(d *schema.Dimension) (coltype.NumType, bool) {
	switch d.Kind {
	case schema.NumericDim:
		return d.NumType, true
	case schema.TimeDim:
		if d.TimePrecision == coltype.Micros {
			return coltype.Ulong, true
		}
		return coltype.Uint, true
	default:
		return 0, false
	}
}
