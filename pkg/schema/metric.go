package schema

import (
	"strings"

	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/verr"
)

// AggType is a metric's aggregation rule.
type AggType int

const (
	Sum AggType = iota
	Min
	Max
	Avg
	Count
	Bitset
)

// Metric describes one column in a table's metric list.
type Metric struct {
	Name  string
	Index int
	Agg   AggType

	// Sum / Min / Max / Avg / Bitset element type.
	NumType coltype.NumType

	// Count: max bounds the stored width (default u32).
	Max uint64

	// Avg: Field names the companion count metric, explicit or implicit
	// "<name>_count".
	Field string
}

// Width returns the metric's stored width in bytes.
func (m *Metric) Width() int {
	switch m.Agg {
	case Count:
		return countWidthFor(m.Max)
	case Bitset:
		return 0 // variable-size compressed structure, not a fixed column width
	default:
		return m.NumType.Width()
	}
}

func countWidthFor(max uint64) int {
	switch {
	case max == 0:
		return config.DefaultCountWidthBits / 8 // default u32 when no max is configured
	case max > 1<<32:
		return 8
	case max > 1<<16:
		return 4
	case max > 1<<8:
		return 2
	default:
		return 1
	}
}

// MetricDescriptor is the JSON shape of one entry in a table descriptor's
// "metrics" list.
type MetricDescriptor struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Max   uint64 `json:"max,omitempty"`
	Field string `json:"field,omitempty"`
}

// BuildMetric validates and constructs a Metric from its descriptor.
func BuildMetric(idx int, d MetricDescriptor) (*Metric, error) {
	if d.Name == "" || strings.ContainsAny(d.Name, `"\`) {
		return nil, verr.Configf("metric %d: illegal name %q", idx, d.Name)
	}

	out := &Metric{Name: d.Name, Index: idx, Max: d.Max}

	switch d.Type {
	case "count":
		out.Agg = Count
	case "bitset":
		out.Agg = Bitset
		out.NumType = coltype.Uint
	default:
		parts := strings.SplitN(d.Type, "_", 2)
		if len(parts) != 2 {
			return nil, verr.Configf("metric %q: unsupported type %q", d.Name, d.Type)
		}
		numType, err := coltype.ParseNumType(parts[0])
		if err != nil {
			return nil, verr.Configf("metric %q: %v", d.Name, err)
		}
		out.NumType = numType
		switch parts[1] {
		case "sum":
			out.Agg = Sum
		case "min":
			out.Agg = Min
		case "max":
			out.Agg = Max
		case "avg":
			out.Agg = Avg
			out.Field = d.Field
			if out.Field == "" {
				out.Field = d.Name + "_count"
			}
		default:
			return nil, verr.Configf("metric %q: unsupported aggregation %q", d.Name, parts[1])
		}
	}

	return out, nil
}

// Init returns the metric's additive identity for SUM/AVG/COUNT, or the
// type-max/type-min sentinel for MIN/MAX respectively.
func (m *Metric) Init() coltype.AnyNum {
	switch m.Agg {
	case Min:
		return coltype.MaxValue(m.NumType)
	case Max:
		return coltype.MinValue(m.NumType)
	default:
		return coltype.Zero(m.NumType)
	}
}

// Update applies the metric's aggregation rule: a op= b.
func (m *Metric) Update(a, b coltype.AnyNum) coltype.AnyNum {
	switch m.Agg {
	case Sum, Avg, Count:
		if m.NumType.IsFloat() {
			return coltype.NewFloat(a.Float64() + b.Float64())
		}
		if m.NumType.IsSigned() {
			return coltype.NewInt(a.Int64() + b.Int64())
		}
		return coltype.NewUint(a.Uint64() + b.Uint64())
	case Min:
		if coltype.Compare(m.NumType, b, a) < 0 {
			return b
		}
		return a
	case Max:
		if coltype.Compare(m.NumType, b, a) > 0 {
			return b
		}
		return a
	default:
		return a
	}
}
