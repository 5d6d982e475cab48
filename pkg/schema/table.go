package schema

import (
	"strings"

	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/verr"
)

// WatchDescriptor configures the directory watch for a table.
type WatchDescriptor struct {
	Directory  string   `json:"directory"`
	Extensions []string `json:"extensions,omitempty"`
}

// TableDescriptor is the JSON shape consumed by CreateTable.
type TableDescriptor struct {
	Name        string                `json:"name"`
	SegmentSize int                   `json:"segment_size,omitempty"`
	Dimensions  []DimensionDescriptor `json:"dimensions"`
	Metrics     []MetricDescriptor    `json:"metrics"`
	Watch       *WatchDescriptor      `json:"watch,omitempty"`
}

// Table is a validated, indexed table schema: an ordered list of
// dimensions, an ordered list of metrics, a segment size, and optional
// watch configuration.
type Table struct {
	Name        string
	SegmentSize int
	Dimensions  []*Dimension
	Metrics     []*Metric
	Watch       *WatchDescriptor

	dimByName map[string]*Dimension
	metByName map[string]*Metric
}

// Build validates a table descriptor and constructs its Table schema.
// Indices are dense 0-based positions, stable for the table's lifetime.
func Build(d TableDescriptor) (*Table, error) {
	if d.Name == "" || strings.ContainsAny(d.Name, `"\`) {
		return nil, verr.Configf("illegal table name %q", d.Name)
	}
	if len(d.Dimensions) == 0 {
		return nil, verr.Configf("table %q: must declare at least one dimension", d.Name)
	}

	segSize := d.SegmentSize
	if segSize <= 0 {
		segSize = config.DefaultSegmentSize
	}

	t := &Table{
		Name:        d.Name,
		SegmentSize: segSize,
		Watch:       d.Watch,
		dimByName:   map[string]*Dimension{},
		metByName:   map[string]*Metric{},
	}

	for i, dd := range d.Dimensions {
		dim, err := BuildDimension(i, dd)
		if err != nil {
			return nil, err
		}
		if _, exists := t.dimByName[dim.Name]; exists {
			return nil, verr.Configf("table %q: duplicate dimension %q", d.Name, dim.Name)
		}
		t.Dimensions = append(t.Dimensions, dim)
		t.dimByName[dim.Name] = dim
	}

	for i, md := range d.Metrics {
		met, err := BuildMetric(i, md)
		if err != nil {
			return nil, err
		}
		if _, exists := t.metByName[met.Name]; exists {
			return nil, verr.Configf("table %q: duplicate metric %q", d.Name, met.Name)
		}
		t.Metrics = append(t.Metrics, met)
		t.metByName[met.Name] = met
	}

	// AVG metrics use a companion COUNT metric for division at output
	//; auto-add it when the schema didn't declare it
	// explicitly, so it participates in segment storage like any other
	// metric without the caller having to know about it.
	for _, met := range t.Metrics {
		if met.Agg != Avg {
			continue
		}
		if _, exists := t.metByName[met.Field]; exists {
			continue
		}
		companion := &Metric{Name: met.Field, Index: len(t.Metrics), Agg: Count}
		t.Metrics = append(t.Metrics, companion)
		t.metByName[companion.Name] = companion
	}

	// Validate that cardinality guard companion dims reference real
	// dimensions. AVG companion count fields always exist after the
	// auto-add above.
	for _, dim := range t.Dimensions {
		if dim.CardinalityGuard == nil {
			continue
		}
		for _, cd := range dim.CardinalityGuard.CompanionDims {
			if _, ok := t.dimByName[cd]; !ok {
				return nil, verr.Configf("table %q: cardinality guard on %q references unknown dimension %q", d.Name, dim.Name, cd)
			}
		}
	}

	return t, nil
}

// Dimension looks up a dimension by name.
func (t *Table) Dimension(name string) (*Dimension, bool) {
	d, ok := t.dimByName[name]
	return d, ok
}

// Metric looks up a metric by name.
func (t *Table) Metric(name string) (*Metric, bool) {
	m, ok := t.metByName[name]
	return m, ok
}

// ColumnNames returns every dimension name followed by every metric name,
// in schema order — the expansion of the "*" select-star column.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Dimensions)+len(t.Metrics))
	for _, d := range t.Dimensions {
		names = append(names, d.Name)
	}
	for _, m := range t.Metrics {
		names = append(names, m.Name)
	}
	return names
}
