// Package filter implements the relational/in-set/composite/NOT filter
// tree used for query-time row-level scan predicates and HAVING
// evaluation.
package filter

import (
	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/verr"
)

// Op is a relational comparison operator.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

func parseOp(s string) (Op, error) {
	switch s {
	case "eq":
		return Eq, nil
	case "ne":
		return Ne, nil
	case "lt":
		return Lt, nil
	case "le":
		return Le, nil
	case "gt":
		return Gt, nil
	case "ge":
		return Ge, nil
	default:
		return 0, verr.Configf("unsupported filter operator %q", s)
	}
}

func (op Op) negate() Op {
	switch op {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Le:
		return Gt
	case Gt:
		return Le
	}
	return op
}

// ColumnRef is a resolved filter operand: a position in whatever value
// space the caller evaluates against (table dimension index, raw metric
// index, or a query's output column index), plus the type information
// needed to compare and to decode string literals.
type ColumnRef struct {
	Index    int
	NumType  coltype.NumType
	IsString bool
	Dict     *dict.Dictionary // non-nil when IsString; used to resolve literal values at plan time
}

// Resolver maps a filter column name to its ColumnRef.
type Resolver func(name string) (ColumnRef, bool)

// ValueSource supplies the value at a ColumnRef's index during
// evaluation. Callers provide one view per tuple (row-level filters) or
// per aggregated output row (HAVING).
type ValueSource interface {
	Value(idx int) coltype.AnyNum
}

// Node is one filter tree node. Precedence governs the order AND
// reorders its children: cheaper, more selective predicates run first.
type Node interface {
	Accepts(v ValueSource) bool
	precedence() int
}

type emptyNode struct{}

func (emptyNode) Accepts(ValueSource) bool { return true }
func (emptyNode) precedence() int          { return 0 }

// Empty is the filter that always accepts every row.
var Empty Node = emptyNode{}

type neverNode struct{}

func (neverNode) Accepts(ValueSource) bool { return false }
func (neverNode) precedence() int          { return 0 }

type relNode struct {
	col ColumnRef
	op  Op
	val coltype.AnyNum
}

func (n relNode) Accepts(v ValueSource) bool {
	c := coltype.Compare(n.col.NumType, v.Value(n.col.Index), n.val)
	switch n.op {
	case Eq:
		return c == 0
	case Ne:
		return c != 0
	case Lt:
		return c < 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Ge:
		return c >= 0
	default:
		return false
	}
}

func (relNode) precedence() int { return 1 }

// inNode implements both "in" (negate=false, OR-of-equalities shape) and
// its De Morgan dual "not in" (negate=true, AND-of-inequalities shape) as
// a single membership test rather than materializing each equality as
// its own node.
type inNode struct {
	col    ColumnRef
	vals   []coltype.AnyNum
	negate bool
}

func (n inNode) Accepts(v ValueSource) bool {
	actual := v.Value(n.col.Index)
	found := false
	for _, val := range n.vals {
		if coltype.Compare(n.col.NumType, actual, val) == 0 {
			found = true
			break
		}
	}
	if n.negate {
		return !found
	}
	return found
}

func (inNode) precedence() int { return 4 }

type andNode struct{ children []Node }

func (n andNode) Accepts(v ValueSource) bool {
	for _, c := range n.children {
		if !c.Accepts(v) {
			return false
		}
	}
	return true
}

func (andNode) precedence() int { return 2 }

type orNode struct{ children []Node }

func (n orNode) Accepts(v ValueSource) bool {
	for _, c := range n.children {
		if c.Accepts(v) {
			return true
		}
	}
	return false
}

func (orNode) precedence() int { return 3 }

// newAnd builds an AND node with children sorted by ascending precedence
// so cheaper predicates short-circuit the rest first.
func newAnd(children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	sorted := make([]Node, len(children))
	copy(sorted, children)
	sortByPrecedence(sorted)
	return andNode{children: sorted}
}

func newOr(children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	sorted := make([]Node, len(children))
	copy(sorted, children)
	sortByPrecedence(sorted)
	return orNode{children: sorted}
}

func sortByPrecedence(nodes []Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j-1].precedence() > nodes[j].precedence(); j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// negate returns the De Morgan dual of n, used to eliminate NOT at build
// time rather than carrying a NOT node into evaluation.
func negate(n Node) Node {
	switch t := n.(type) {
	case emptyNode:
		return neverNode{}
	case neverNode:
		return emptyNode{}
	case relNode:
		return relNode{col: t.col, op: t.op.negate(), val: t.val}
	case inNode:
		return inNode{col: t.col, vals: t.vals, negate: !t.negate}
	case andNode:
		children := make([]Node, len(t.children))
		for i, c := range t.children {
			children[i] = negate(c)
		}
		return newOr(children)
	case orNode:
		children := make([]Node, len(t.children))
		for i, c := range t.children {
			children[i] = negate(c)
		}
		return newAnd(children)
	default:
		return neverNode{}
	}
}

// decodeValue resolves one filter literal to an AnyNum comparable to
// ColumnRef's values: string columns via dictionary lookup (a missing
// entry yields the type's max value, which never matches a stored code
// and so filters correctly without mutating the dictionary), everything
// else via typed parse.
func decodeValue(col ColumnRef, s string) (coltype.AnyNum, error) {
	if col.IsString {
		if code, ok := col.Dict.Lookup(s); ok {
			return coltype.NewUint(code), nil
		}
		return coltype.MaxValue(col.NumType), nil
	}
	return coltype.Parse(col.NumType, s)
}
