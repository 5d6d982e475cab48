package filter

import (
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/verr"
)

// Descriptor is the JSON shape of a filter tree node:
//
//	{op: eq|ne|lt|le|gt|ge, column, value}
//	{op: in, column, values: [...]}
//	{op: and|or, filters: [...]}
//	{op: not, filter: {...}}
//	{} (empty, accepts all)
type Descriptor struct {
	Op      string       `json:"op,omitempty"`
	Column  string       `json:"column,omitempty"`
	Value   string       `json:"value,omitempty"`
	Values  []string     `json:"values,omitempty"`
	Filters []Descriptor `json:"filters,omitempty"`
	Filter  *Descriptor  `json:"filter,omitempty"`
}

// Build plans a Descriptor into an evaluable Node, resolving column names
// via resolve and decoding literal values against each column's type.
// NOT is eliminated here via De Morgan; the returned tree never contains
// a NOT node.
func Build(d Descriptor, resolve Resolver) (Node, error) {
	switch d.Op {
	case "":
		return Empty, nil
	case "eq", "ne", "lt", "le", "gt", "ge":
		op, err := parseOp(d.Op)
		if err != nil {
			return nil, err
		}
		col, ok := resolve(d.Column)
		if !ok {
			return nil, verr.Lookupf("unknown filter column %q", d.Column)
		}
		val, err := decodeValue(col, d.Value)
		if err != nil {
			return nil, err
		}
		return relNode{col: col, op: op, val: val}, nil
	case "in", "not_in":
		col, ok := resolve(d.Column)
		if !ok {
			return nil, verr.Lookupf("unknown filter column %q", d.Column)
		}
		vals := make([]coltype.AnyNum, len(d.Values))
		for i, raw := range d.Values {
			v, err := decodeValue(col, raw)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return inNode{col: col, vals: vals, negate: d.Op == "not_in"}, nil
	case "and", "or":
		if len(d.Filters) == 0 {
			return nil, verr.Configf("%s filter requires at least one child", d.Op)
		}
		children := make([]Node, len(d.Filters))
		for i, fd := range d.Filters {
			n, err := Build(fd, resolve)
			if err != nil {
				return nil, err
			}
			children[i] = n
		}
		if d.Op == "and" {
			return newAnd(children), nil
		}
		return newOr(children), nil
	case "not":
		if d.Filter == nil {
			return nil, verr.Configf("not filter requires a child filter")
		}
		n, err := Build(*d.Filter, resolve)
		if err != nil {
			return nil, err
		}
		return negate(n), nil
	default:
		return nil, verr.Configf("unsupported filter op %q", d.Op)
	}
}
