// Package schema implements the column schema: dimensions and metrics
// with their code width, parsing, aggregation rule, and sort class.
package schema

import (
	"strings"

	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/rollup"
	"github.com/viyadb/viyadb/pkg/verr"
)

// DimKind is the stored representation kind of a dimension.
type DimKind int

const (
	StringDim DimKind = iota
	NumericDim
	TimeDim
	BooleanDim
)

// SortClass governs how a column's textual output is compared when
// sorting.
type SortClass int

const (
	SortString SortClass = iota
	SortInteger
	SortFloat
)

// CardinalityGuardSpec configures a per-companion-key cap on distinct
// values of this dimension.
type CardinalityGuardSpec struct {
	CompanionDims []string
	Limit         int
}

// Dimension describes one column in a table's dimension list.
type Dimension struct {
	Name  string
	Index int
	Kind  DimKind

	// NumericDim / TimeDim
	NumType coltype.NumType

	// StringDim
	Cardinality uint64
	MaxLength   int

	// TimeDim
	TimeFormat    coltype.TimeFormat
	TimePrecision coltype.TimePrecision
	RollupRules   rollup.Rules

	CardinalityGuard *CardinalityGuardSpec
}

// Width returns the dimension's stored width in bytes, one of {1,2,4,8}.
func (d *Dimension) Width() int {
	switch d.Kind {
	case StringDim:
		return codeWidthFor(d.Cardinality)
	case NumericDim:
		return d.NumType.Width()
	case TimeDim:
		return d.TimePrecision.Width()
	case BooleanDim:
		return 1
	default:
		return 8
	}
}

// SortClass reports how this dimension's textual output should compare
// during ORDER BY.
func (d *Dimension) SortClass() SortClass {
	switch d.Kind {
	case NumericDim, TimeDim:
		if d.Kind == NumericDim && d.NumType.IsFloat() {
			return SortFloat
		}
		return SortInteger
	case BooleanDim:
		return SortInteger
	default:
		return SortString
	}
}

// codeWidthFor picks the smallest width that can represent cardinality
// distinct codes, the sentinel included (codes 0..cardinality-1).
func codeWidthFor(cardinality uint64) int {
	switch {
	case cardinality == 0 || cardinality > 1<<32:
		return 8
	case cardinality > 1<<16:
		return 4
	case cardinality > 1<<8:
		return 2
	default:
		return 1
	}
}

// DimensionDescriptor is the JSON shape of one entry in a table
// descriptor's "dimensions" list.
type DimensionDescriptor struct {
	Name             string                `json:"name"`
	Type             string                `json:"type,omitempty"`
	Length           int                   `json:"length,omitempty"`
	Cardinality      uint64                `json:"cardinality,omitempty"`
	Format           string                `json:"format,omitempty"`
	Granularity      string                `json:"granularity,omitempty"`
	RollupRules      []RollupRuleDesc      `json:"rollup_rules,omitempty"`
	CardinalityGuard *CardinalityGuardDesc `json:"cardinality_guard,omitempty"`
}

// RollupRuleDesc is the JSON shape of one rollup rule.
type RollupRuleDesc struct {
	After       string `json:"after"`
	Granularity string `json:"granularity"`
}

// CardinalityGuardDesc is the JSON shape of a cardinality_guard entry.
type CardinalityGuardDesc struct {
	CompanionDims []string `json:"companion_dims"`
	Limit         int      `json:"limit"`
}

// BuildDimension validates and constructs a Dimension from its descriptor.
func BuildDimension(idx int, d DimensionDescriptor) (*Dimension, error) {
	if d.Name == "" || strings.ContainsAny(d.Name, `"\`) {
		return nil, verr.Configf("dimension %d: illegal name %q", idx, d.Name)
	}

	out := &Dimension{Name: d.Name, Index: idx}

	switch d.Type {
	case "", "string":
		out.Kind = StringDim
		out.Cardinality = d.Cardinality
		out.MaxLength = d.Length
	case "time":
		out.Kind = TimeDim
		format, err := coltype.ParseTimeFormat(d.Format)
		if err != nil {
			return nil, err
		}
		out.TimeFormat = format
		out.TimePrecision = coltype.Seconds
		if d.Granularity == "micros" {
			out.TimePrecision = coltype.Micros
		}
		for _, rd := range d.RollupRules {
			rule, err := buildRollupRule(rd)
			if err != nil {
				return nil, err
			}
			out.RollupRules = append(out.RollupRules, rule)
		}
	case "bool", "boolean":
		out.Kind = BooleanDim
	default:
		numType, err := coltype.ParseNumType(d.Type)
		if err != nil {
			return nil, verr.Configf("dimension %q: %v", d.Name, err)
		}
		out.Kind = NumericDim
		out.NumType = numType
	}

	if d.CardinalityGuard != nil {
		out.CardinalityGuard = &CardinalityGuardSpec{
			CompanionDims: d.CardinalityGuard.CompanionDims,
			Limit:         d.CardinalityGuard.Limit,
		}
	}

	return out, nil
}

func buildRollupRule(d RollupRuleDesc) (rollup.Rule, error) {
	count, unit, err := splitDuration(d.After)
	if err != nil {
		return rollup.Rule{}, err
	}
	dur, err := rollup.ParseDuration(count, unit)
	if err != nil {
		return rollup.Rule{}, err
	}
	gran, err := rollup.ParseUnit(d.Granularity)
	if err != nil {
		return rollup.Rule{}, err
	}
	return rollup.Rule{After: dur, Granularity: gran}, nil
}

// splitDuration parses strings like "1 day" or "7 day" into count+unit.
func splitDuration(s string) (int, string, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", verr.Configf("invalid duration %q, expected \"<count> <unit>\"", s)
	}
	var count int
	for _, c := range fields[0] {
		if c < '0' || c > '9' {
			return 0, "", verr.Configf("invalid duration count %q", fields[0])
		}
		count = count*10 + int(c-'0')
	}
	return count, fields[1], nil
}
