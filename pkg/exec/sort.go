package exec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
)

// sortRows orders formatted rows by the resolved ORDER BY list, stable so
// that ties preserve scan order. A nil/empty sort list is a no-op.
func sortRows(rows [][]string, sorts []query.ResolvedSort, outputs []query.OutputColumn, t *schema.Table) {
	if len(sorts) == 0 {
		return
	}
	classes := make([]schema.SortClass, len(outputs))
	for i, o := range outputs {
		classes[i] = outputSortClass(o, t)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		for _, s := range sorts {
			av, bv := rows[a][s.OutputIdx], rows[b][s.OutputIdx]
			c := compareCell(classes[s.OutputIdx], av, bv)
			if c == 0 {
				continue
			}
			if s.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

// outputSortClass derives an output column's sort comparison from its
// underlying schema type: the dimension's own SortClass, or a metric's
// NumType (AVG and BITSET always compare as floats/integers, since their
// formatted text is always numeric regardless of declared element type).
func outputSortClass(o query.OutputColumn, t *schema.Table) schema.SortClass {
	if o.IsDim {
		return t.Dimensions[o.Index].SortClass()
	}
	m := t.Metrics[o.Index]
	switch m.Agg {
	case schema.Avg:
		return schema.SortFloat
	case schema.Count, schema.Bitset:
		return schema.SortInteger
	default:
		if m.NumType.IsFloat() {
			return schema.SortFloat
		}
		return schema.SortInteger
	}
}

func compareCell(class schema.SortClass, a, b string) int {
	switch class {
	case schema.SortString:
		return strings.Compare(a, b)
	case schema.SortInteger:
		return compareInteger(a, b)
	default: // SortFloat
		af, aerr := strconv.ParseFloat(a, 64)
		bf, berr := strconv.ParseFloat(b, 64)
		if aerr != nil || berr != nil {
			return strings.Compare(a, b)
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
}

// compareInteger orders two formatted integer cells by length first, then
// lexicographically: shorter is smaller, equal-length ties break
// lexicographically. Ulong values up to 2^64-1 are formatted verbatim as
// canonical decimal text, so this avoids float64's 53-bit mantissa losing
// precision between two distinct large values that would otherwise
// compare equal.
func compareInteger(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// applySkipLimit slices rows per the resolved skip/limit (0 means
// unbounded), clamping to the available row count.
func applySkipLimit(rows [][]string, skip, limit int) [][]string {
	if skip > 0 {
		if skip >= len(rows) {
			return rows[:0]
		}
		rows = rows[skip:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
