package query

import (
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/filter"
	"github.com/viyadb/viyadb/pkg/rollup"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/verr"
)

// OutputColumn is one resolved column of a query's select list.
type OutputColumn struct {
	Name  string
	IsDim bool
	Index int // dimension or metric index in the table schema

	// Time dimensions only: the query-time rollup to apply before
	// grouping, and the output strftime-like format. Both are nil for
	// non-time columns or when the descriptor didn't request them.
	Granularity *rollup.Unit
	Format      *coltype.TimeFormat
}

// ResolvedSort is one ORDER BY entry resolved to a position in Outputs.
type ResolvedSort struct {
	OutputIdx int
	Ascending bool
}

// Plan is a query descriptor fully resolved against a table's schema:
// ready for the executor without further name lookups.
type Plan struct {
	Kind    Kind
	Table   *schema.Table
	Outputs []OutputColumn
	Filter  filter.Node
	Having  filter.Node
	Sort    []ResolvedSort
	Skip    int
	Limit   int
	Header  bool

	SearchDim  int
	SearchTerm string

	ShowWhat string
}

// Build resolves a Descriptor against t (whose string-dimension
// dictionaries are dicts, indexed by dimension index) into an executable
// Plan.
func Build(d Descriptor, t *schema.Table, dicts []*dict.Dictionary) (*Plan, error) {
	kind, ok := parseKind(d.Type)
	if !ok {
		return nil, verr.Configf("unsupported query type %q", d.Type)
	}

	resolveRow := TableResolver(t, dicts)

	if kind == Show {
		return &Plan{Kind: kind, ShowWhat: d.What}, nil
	}

	if kind == Search {
		dim, ok := t.Dimension(d.Dimension)
		if !ok {
			return nil, verr.Lookupf("unknown dimension %q", d.Dimension)
		}
		return &Plan{
			Kind:       kind,
			Table:      t,
			SearchDim:  dim.Index,
			SearchTerm: d.Term,
			Limit:      d.Limit,
		}, nil
	}

	outputs, err := resolveOutputs(d, t)
	if err != nil {
		return nil, err
	}

	f, err := filter.Build(d.Filter, resolveRow)
	if err != nil {
		return nil, err
	}

	var having filter.Node = filter.Empty
	if d.Having != nil {
		resolveOut := OutputResolver(outputs, t, dicts)
		having, err = filter.Build(*d.Having, resolveOut)
		if err != nil {
			return nil, err
		}
	}

	sort, err := resolveSort(d.Sort, outputs)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Kind:    kind,
		Table:   t,
		Outputs: outputs,
		Filter:  f,
		Having:  having,
		Sort:    sort,
		Skip:    d.Skip,
		Limit:   d.Limit,
		Header:  d.Header,
	}, nil
}

func resolveOutputs(d Descriptor, t *schema.Table) ([]OutputColumn, error) {
	var cols []SelectColumn
	switch {
	case len(d.Select) > 0:
		cols = d.Select
	case len(d.Dimensions) > 0 || len(d.Metrics) > 0:
		for _, name := range d.Dimensions {
			cols = append(cols, SelectColumn{Column: name})
		}
		for _, name := range d.Metrics {
			cols = append(cols, SelectColumn{Column: name})
		}
	default:
		for _, name := range t.ColumnNames() {
			cols = append(cols, SelectColumn{Column: name})
		}
	}

	if len(cols) == 1 && cols[0].Column == "*" {
		cols = cols[:0]
		for _, name := range t.ColumnNames() {
			cols = append(cols, SelectColumn{Column: name})
		}
	}

	outputs := make([]OutputColumn, 0, len(cols))
	for _, c := range cols {
		out, err := resolveOutputColumn(c, t)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func resolveOutputColumn(c SelectColumn, t *schema.Table) (OutputColumn, error) {
	if dim, ok := t.Dimension(c.Column); ok {
		out := OutputColumn{Name: c.Column, IsDim: true, Index: dim.Index}
		if dim.Kind == schema.TimeDim {
			if c.Granularity != "" {
				g, err := rollup.ParseUnit(c.Granularity)
				if err != nil {
					return OutputColumn{}, err
				}
				out.Granularity = &g
			}
			format := dim.TimeFormat
			if c.Format != "" {
				f, err := coltype.ParseTimeFormat(c.Format)
				if err != nil {
					return OutputColumn{}, err
				}
				format = f
			}
			out.Format = &format
		}
		return out, nil
	}
	if met, ok := t.Metric(c.Column); ok {
		return OutputColumn{Name: c.Column, IsDim: false, Index: met.Index}, nil
	}
	return OutputColumn{}, verr.Lookupf("unknown column %q", c.Column)
}

func resolveSort(sorts []SortColumn, outputs []OutputColumn) ([]ResolvedSort, error) {
	if len(sorts) == 0 {
		return nil, nil
	}
	out := make([]ResolvedSort, len(sorts))
	for i, s := range sorts {
		idx := -1
		for j, o := range outputs {
			if o.Name == s.Column {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, verr.Lookupf("sort column %q is not in the select list", s.Column)
		}
		out[i] = ResolvedSort{OutputIdx: idx, Ascending: s.Ascending}
	}
	return out, nil
}

// TableResolver resolves filter column names against a table's schema
// columns, using a unified index space: dimension indices first, then
// metric indices offset by len(t.Dimensions).
func TableResolver(t *schema.Table, dicts []*dict.Dictionary) filter.Resolver {
	return func(name string) (filter.ColumnRef, bool) {
		if dim, ok := t.Dimension(name); ok {
			return dimColumnRef(dim, dim.Index, dicts), true
		}
		if met, ok := t.Metric(name); ok {
			return filter.ColumnRef{Index: len(t.Dimensions) + met.Index, NumType: met.NumType}, true
		}
		return filter.ColumnRef{}, false
	}
}

// OutputResolver resolves HAVING filter column names against a query's
// resolved select list, indexed by output position.
func OutputResolver(outputs []OutputColumn, t *schema.Table, dicts []*dict.Dictionary) filter.Resolver {
	return func(name string) (filter.ColumnRef, bool) {
		for i, o := range outputs {
			if o.Name != name {
				continue
			}
			if o.IsDim {
				return dimColumnRef(t.Dimensions[o.Index], i, dicts), true
			}
			m := t.Metrics[o.Index]
			numType := m.NumType
			if m.Agg == schema.Avg {
				// AVG's aggregated value is the divided float.
				numType = coltype.Double
			}
			return filter.ColumnRef{Index: i, NumType: numType}, true
		}
		return filter.ColumnRef{}, false
	}
}

func dimColumnRef(dim *schema.Dimension, idx int, dicts []*dict.Dictionary) filter.ColumnRef {
	if dim.Kind == schema.StringDim {
		return filter.ColumnRef{Index: idx, NumType: coltype.Ulong, IsString: true, Dict: dicts[dim.Index]}
	}
	numType := dim.NumType
	if dim.Kind == schema.TimeDim {
		numType = coltype.Ulong
	} else if dim.Kind == schema.BooleanDim {
		numType = coltype.Ubyte
	}
	return filter.ColumnRef{Index: idx, NumType: numType}
}
