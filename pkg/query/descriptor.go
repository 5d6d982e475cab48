// Package query implements the query descriptors consumed by the
// external Query boundary: aggregate, select, search, and show, plus
// planning them against a table's schema into an executable Plan.
package query

import "github.com/viyadb/viyadb/pkg/filter"

// Kind identifies the query descriptor's shape.
type Kind int

const (
	Aggregate Kind = iota
	Select
	Search
	Show
)

// SelectColumn is one output column: a schema column name plus an
// optional time output format and an optional query-time rollup
// granularity (time dimensions only).
type SelectColumn struct {
	Column      string `json:"column"`
	Format      string `json:"format,omitempty"`
	Granularity string `json:"granularity,omitempty"`
}

// SortColumn is one ORDER BY entry, referencing an output column by
// name; planning resolves it to that column's position in the select
// list.
type SortColumn struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending,omitempty"`
}

// Descriptor is the JSON shape of a query request.
type Descriptor struct {
	Type  string `json:"type"`
	Table string `json:"table"`

	// aggregate / select
	Select     []SelectColumn     `json:"select,omitempty"`
	Dimensions []string           `json:"dimensions,omitempty"`
	Metrics    []string           `json:"metrics,omitempty"`
	Filter     filter.Descriptor  `json:"filter,omitempty"`
	Having     *filter.Descriptor `json:"having,omitempty"`
	Sort       []SortColumn       `json:"sort,omitempty"`
	Skip       int                `json:"skip,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Header     bool               `json:"header,omitempty"`

	// search
	Dimension string `json:"dimension,omitempty"`
	Term      string `json:"term,omitempty"`

	// show
	What string `json:"what,omitempty"`
}

func parseKind(s string) (Kind, bool) {
	switch s {
	case "aggregate":
		return Aggregate, true
	case "select":
		return Select, true
	case "search":
		return Search, true
	case "show":
		return Show, true
	default:
		return 0, false
	}
}
