package upsert

import (
	"strconv"

	"github.com/viyadb/viyadb/pkg/bitset"
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/rollup"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
	"github.com/viyadb/viyadb/pkg/verr"
)

// Row is one source row already mapped to schema column order: DimFields
// has one entry per table dimension, MetFields one entry per table
// metric.
type Row struct {
	DimFields []string
	MetFields []string
}

// ProcessRow runs the per-row ingest algorithm: partition filter, parse,
// roll-up, dictionary-encode, cardinality guard, metric parse, then
// upsert-or-insert. nowMicros is the reference time used
// to evaluate time rollup "after" thresholds.
func (c *Context) ProcessRow(row Row, nowMicros int64) error {
	if c.partitionFilter != nil && !c.partitionFilter.Accepts(row.DimFields) {
		return nil
	}

	dims, err := c.parseDims(row.DimFields, nowMicros)
	if err != nil {
		c.failedRecs.Add(1)
		return err
	}

	c.applyCardinalityGuards(dims)

	mets, err := c.parseMetrics(row.MetFields)
	if err != nil {
		c.failedRecs.Add(1)
		return err
	}

	c.upsert(dims, mets)
	return nil
}

func (c *Context) parseDims(fields []string, nowMicros int64) ([]coltype.AnyNum, error) {
	dims := make([]coltype.AnyNum, len(c.table.Dimensions))
	for i, d := range c.table.Dimensions {
		var field string
		if i < len(fields) {
			field = fields[i]
		}
		switch d.Kind {
		case schema.StringDim:
			if d.MaxLength > 0 && len(field) > d.MaxLength {
				field = field[:d.MaxLength]
			}
			dims[i] = coltype.NewUint(c.dicts[i].Encode(field))
		case schema.NumericDim:
			v, err := coltype.Parse(d.NumType, field)
			if err != nil {
				return nil, err
			}
			dims[i] = v
		case schema.TimeDim:
			micros, err := d.TimeFormat.Parse(field)
			if err != nil {
				return nil, err
			}
			if len(d.RollupRules) > 0 {
				micros = rollup.Apply(d.RollupRules, micros, nowMicros)
			}
			if d.TimePrecision == coltype.Seconds {
				dims[i] = coltype.NewUint(uint64(micros / 1_000_000))
			} else {
				dims[i] = coltype.NewUint(uint64(micros))
			}
		case schema.BooleanDim:
			if field == "true" {
				dims[i] = coltype.NewUint(1)
			} else {
				dims[i] = coltype.NewUint(0)
			}
		default:
			return nil, verr.Internalf("unknown dimension kind for %q", d.Name)
		}
	}
	return dims, nil
}

// applyCardinalityGuards enforces each guarded dimension's per-companion
// limit in schema order, remapping exceeding values to the sentinel code
// 0 in place.
func (c *Context) applyCardinalityGuards(dims []coltype.AnyNum) {
	var buf []byte
	for i, g := range c.guards {
		if g == nil {
			continue
		}
		code := dims[i].Uint64()
		remapped := g.apply(buf, dims, code)
		dims[i] = coltype.NewUint(remapped)
	}
}

func (c *Context) parseMetrics(fields []string) ([]store.MetricCell, error) {
	cells := make([]store.MetricCell, len(c.table.Metrics))
	for i, m := range c.table.Metrics {
		var field string
		if i < len(fields) {
			field = fields[i]
		}
		switch m.Agg {
		case schema.Count:
			cells[i] = store.MetricCell{Num: coltype.NewUint(1)}
		case schema.Bitset:
			if field == "" {
				cells[i] = store.MetricCell{BM: bitset.New()}
				continue
			}
			v, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, verr.Parsef("metric %q: invalid bitset value %q", m.Name, field)
			}
			cells[i] = store.MetricCell{BM: bitset.NewSingleton(uint32(v))}
		default: // Sum, Min, Max, Avg
			v, err := coltype.Parse(m.NumType, field)
			if err != nil {
				return nil, verr.Parsef("metric %q: %v", m.Name, err)
			}
			cells[i] = store.MetricCell{Num: v}
		}
	}
	return cells, nil
}

// upsert looks the dimension tuple up in tupleOffsets: if present, merges
// the row's metrics into the existing tuple; otherwise appends a new
// tuple to the table's last segment.
func (c *Context) upsert(dims []coltype.AnyNum, mets []store.MetricCell) {
	buf := encodeTuple(nil, dims)

	if offset, ok := c.lookup(buf, dims); ok {
		segIdx, tupleIdx := c.splitOffset(offset)
		c.store.SegmentAt(segIdx).Update(tupleIdx, mets)
		c.maybeOptimizeBitsets(segIdx, tupleIdx)
		return
	}

	seg := c.store.LastSegment()
	tupleIdx := seg.Insert(dims, mets)
	if tupleIdx < 0 {
		// The segment filled between LastSegment() and Insert() under
		// single-writer ingest this cannot happen, but a defensive retry
		// keeps the invariant even if that assumption is ever relaxed.
		seg = c.store.LastSegment()
		tupleIdx = seg.Insert(dims, mets)
	}

	segIdx := c.segmentIndex(seg)
	offset := c.joinOffset(segIdx, tupleIdx)
	c.record(buf, dims, offset)
	c.newRecs.Add(1)
}

func (c *Context) segmentIndex(seg *store.Segment) int {
	snap := c.store.Snapshot()
	for i, s := range snap {
		if s == seg {
			return i
		}
	}
	return len(snap) - 1
}

func (c *Context) splitOffset(offset int64) (segIdx, tupleIdx int) {
	segSize := int64(c.table.SegmentSize)
	return int(offset / segSize), int(offset % segSize)
}

func (c *Context) joinOffset(segIdx, tupleIdx int) int64 {
	return int64(segIdx)*int64(c.table.SegmentSize) + int64(tupleIdx)
}

// maybeOptimizeBitsets runs the lazy bitset optimization pass every N
// updates.
func (c *Context) maybeOptimizeBitsets(segIdx, tupleIdx int) {
	c.mu.Lock()
	c.updates++
	due := c.updates%config.UpdatesBeforeOptimize == 0
	c.mu.Unlock()
	if !due {
		return
	}
	seg := c.store.SegmentAt(segIdx)
	for i, m := range c.table.Metrics {
		if m.Agg != schema.Bitset {
			continue
		}
		cell := seg.Metric(tupleIdx, i)
		if cell.BM != nil {
			cell.BM.Optimize()
		}
	}
}
