package filter

import "github.com/viyadb/viyadb/pkg/coltype"

// DimRange is a segment's observed [min,max] for one dimension, the
// caller-supplied view a SegmentStats function uses to answer segment
// pruning checks without this package depending on the store's Segment
// type directly.
type DimRange struct {
	Valid    bool
	Min, Max coltype.AnyNum
}

// SegmentStats supplies the range for a dimension's column index.
type SegmentStats func(dimIdx int) DimRange

// SegmentMayMatch derives a conservative segment-skip predicate from n:
// it reports false only when no tuple in a segment with the given stats
// could possibly satisfy n, so the caller can skip scanning it entirely.
// A true result does not guarantee a match — the scan still evaluates
// Accepts per tuple.
func SegmentMayMatch(n Node, stats SegmentStats) bool {
	switch t := n.(type) {
	case emptyNode:
		return true
	case neverNode:
		return false
	case relNode:
		r := stats(t.col.Index)
		if !r.Valid {
			return true
		}
		c := t.col.NumType
		switch t.op {
		case Eq:
			return coltype.Compare(c, r.Min, t.val) <= 0 && coltype.Compare(c, r.Max, t.val) >= 0
		case Lt, Le:
			return coltype.Compare(c, r.Min, t.val) <= 0
		case Gt, Ge:
			return coltype.Compare(c, r.Max, t.val) >= 0
		default: // Ne: a range can always contain a non-matching value
			return true
		}
	case andNode:
		for _, c := range t.children {
			if !SegmentMayMatch(c, stats) {
				return false
			}
		}
		return true
	case orNode:
		for _, c := range t.children {
			if SegmentMayMatch(c, stats) {
				return true
			}
		}
		return false
	default: // inNode and anything else: no sound range-based pruning
		return true
	}
}
