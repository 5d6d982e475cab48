// Package loader reads a TSV file or buffer and drives the upsert engine
// row by row, mapping source column order onto schema order.
package loader

import (
	"bufio"
	"io"
	"strings"

	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/upsert"
	"github.com/viyadb/viyadb/pkg/verr"
)

// Descriptor is the JSON shape consumed by Load.
type Descriptor struct {
	Type            string                     `json:"type"`
	Table           string                     `json:"table"`
	Format          string                     `json:"format"`
	File            string                     `json:"file"`
	Columns         []string                   `json:"columns,omitempty"`
	PartitionFilter *PartitionFilterDescriptor `json:"partition_filter,omitempty"`
	BatchID         *int64                     `json:"batch_id,omitempty"`
}

// PartitionFilterDescriptor is the JSON shape of a load's partition
// filter: keep only rows whose CRC32(concat(key_cols)) mod N falls in
// Values.
type PartitionFilterDescriptor struct {
	Columns         []string `json:"columns"`
	TotalPartitions uint32   `json:"total_partitions"`
	Values          []uint32 `json:"values"`
}

// RowError tags a parse failure with the 1-based line number it occurred
// on, so a caller can report which row of the file was rejected.
type RowError struct {
	Line int
	Err  error
}

// Stats summarizes one file load.
type Stats struct {
	NewRecs    uint64
	FailedRecs uint64
	Errors     []RowError
}

// columnMapping translates a source row's field order into the order the
// upsert engine expects: dimension fields, then metric fields.
type columnMapping struct {
	dimSrc []int // dimSrc[i] = source field index for table.Dimensions[i], -1 if absent
	metSrc []int // metSrc[i] = source field index for table.Metrics[i], -1 if absent
}

func buildMapping(t *schema.Table, columns []string) (columnMapping, error) {
	m := columnMapping{
		dimSrc: make([]int, len(t.Dimensions)),
		metSrc: make([]int, len(t.Metrics)),
	}
	if len(columns) == 0 {
		for i := range m.dimSrc {
			m.dimSrc[i] = i
		}
		for i := range m.metSrc {
			m.metSrc[i] = len(t.Dimensions) + i
		}
		return m, nil
	}

	for i := range m.dimSrc {
		m.dimSrc[i] = -1
	}
	for i := range m.metSrc {
		m.metSrc[i] = -1
	}
	for srcIdx, name := range columns {
		if d, ok := t.Dimension(name); ok {
			m.dimSrc[d.Index] = srcIdx
			continue
		}
		if mt, ok := t.Metric(name); ok {
			m.metSrc[mt.Index] = srcIdx
			continue
		}
		return columnMapping{}, verr.Configf("load: column %q is neither a dimension nor a metric of table %q", name, t.Name)
	}
	return m, nil
}

func (m columnMapping) row(fields []string) upsert.Row {
	dims := make([]string, len(m.dimSrc))
	for i, src := range m.dimSrc {
		if src >= 0 && src < len(fields) {
			dims[i] = fields[src]
		}
	}
	mets := make([]string, len(m.metSrc))
	for i, src := range m.metSrc {
		if src >= 0 && src < len(fields) {
			mets[i] = fields[src]
		}
	}
	return upsert.Row{DimFields: dims, MetFields: mets}
}

// sourceColumnCount returns how many source fields a row is expected to
// carry, i.e. one past the highest column index referenced by the
// mapping, so "too many fields" can be detected even when columns
// reorders or skips schema columns.
func (m columnMapping) sourceColumnCount(explicit int) int {
	if explicit > 0 {
		return explicit
	}
	max := -1
	for _, i := range m.dimSrc {
		if i > max {
			max = i
		}
	}
	for _, i := range m.metSrc {
		if i > max {
			max = i
		}
	}
	return max + 1
}

// buildPartitionFilter resolves a partition filter descriptor's source
// column names against the declared column order (or schema order when
// columns is absent).
func buildPartitionFilter(d *PartitionFilterDescriptor, columns []string, t *schema.Table) (*upsert.PartitionFilter, error) {
	if d == nil {
		return nil, nil
	}
	srcNames := columns
	if len(srcNames) == 0 {
		srcNames = t.ColumnNames()
	}
	pos := map[string]int{}
	for i, n := range srcNames {
		pos[n] = i
	}

	keyCols := make([]int, len(d.Columns))
	for i, name := range d.Columns {
		idx, ok := pos[name]
		if !ok {
			return nil, verr.Configf("load: partition_filter column %q not found in source columns", name)
		}
		keyCols[i] = idx
	}

	accepted := make(map[uint32]struct{}, len(d.Values))
	for _, v := range d.Values {
		accepted[v] = struct{}{}
	}

	return &upsert.PartitionFilter{
		KeyColumns:      keyCols,
		TotalPartitions: d.TotalPartitions,
		Accepted:        accepted,
	}, nil
}

// Load parses r as TSV and drives ctx row by row, returning per-file
// stats. nowMicros is forwarded to ProcessRow as the roll-up reference
// time.
func Load(ctx *upsert.Context, t *schema.Table, d Descriptor, r io.Reader, nowMicros int64) (Stats, error) {
	mapping, err := buildMapping(t, d.Columns)
	if err != nil {
		return Stats{}, err
	}
	expectedCols := mapping.sourceColumnCount(len(d.Columns))

	pf, err := buildPartitionFilter(d.PartitionFilter, d.Columns, t)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	baseNewRecs := ctx.Stats().NewRecs
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), config.MaxTSVLineBytes)

	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		// A blank physical line carries no fields at all, not one empty
		// field: every dimension/metric that maps onto it defaults the
		// same way a short row's missing trailing fields do.
		var fields []string
		if text != "" {
			fields = strings.Split(text, "\t")
		}
		if len(fields) > expectedCols {
			return stats, verr.Parsef("load %s: line %d: row has %d fields, expected at most %d", d.File, line, len(fields), expectedCols)
		}
		if !pf.Accepts(fields) {
			continue
		}

		row := mapping.row(fields)
		if err := ctx.ProcessRow(row, nowMicros); err != nil {
			stats.Errors = append(stats.Errors, RowError{Line: line, Err: err})
			stats.FailedRecs++
			continue
		}
		// NewRecs counts tuples this load inserted: rows merged into an
		// existing tuple or dropped by the context's partition filter
		// add nothing.
		stats.NewRecs = ctx.Stats().NewRecs - baseNewRecs
	}
	if err := sc.Err(); err != nil {
		return stats, verr.IOf(err, "load %s: reading file", d.File)
	}
	return stats, nil
}
