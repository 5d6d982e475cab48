package exec

import (
	"strconv"

	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
)

// formatDim renders a dimension's stored AnyNum as query output text.
func formatDim(dim *schema.Dimension, out query.OutputColumn, d *dict.Dictionary, v coltype.AnyNum) string {
	switch dim.Kind {
	case schema.StringDim:
		return d.Decode(v.Uint64())
	case schema.TimeDim:
		micros := int64(v.Uint64())
		if dim.TimePrecision == coltype.Seconds {
			micros *= 1_000_000
		}
		if out.Format != nil && out.Format.Kind == coltype.Strftime {
			return coltype.FormatStrftime(out.Format.Pattern, micros)
		}
		return strconv.FormatUint(v.Uint64(), 10)
	case schema.BooleanDim:
		if v.Uint64() != 0 {
			return "true"
		}
		return "false"
	default:
		return formatNum(dim.NumType, v)
	}
}

func formatNum(t coltype.NumType, v coltype.AnyNum) string {
	switch {
	case t.IsFloat():
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case t.IsSigned():
		return strconv.FormatInt(v.Int64(), 10)
	default:
		return strconv.FormatUint(v.Uint64(), 10)
	}
}

// formatMetric renders an aggregated metric accumulator as query output
// text. For AVG, sumVal is the accumulated numerator and count is the
// accumulated companion COUNT value.
func formatMetric(m *schema.Metric, sumVal coltype.AnyNum, count uint64, bm uint64) string {
	switch m.Agg {
	case schema.Count:
		return strconv.FormatUint(sumVal.Uint64(), 10)
	case schema.Bitset:
		return strconv.FormatUint(bm, 10)
	case schema.Avg:
		if count == 0 {
			return "0"
		}
		return strconv.FormatFloat(sumVal.As(m.NumType)/float64(count), 'f', -1, 64)
	default: // Sum, Min, Max
		return formatNum(m.NumType, sumVal)
	}
}
