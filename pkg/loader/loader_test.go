package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
	"github.com/viyadb/viyadb/pkg/upsert"
)

func installsTable(t *testing.T) *schema.Table {
	tbl, err := schema.Build(schema.TableDescriptor{
		Name:        "installs",
		SegmentSize: 8,
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country"},
			{Name: "app_id", Type: "uint"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
			{Name: "revenue", Type: "double_sum"},
		},
	})
	require.NoError(t, err)
	return tbl
}

func TestLoadSchemaOrderWhenColumnsOmitted(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	body := "US\t42\t\t1.50\nFR\t7\t\t2.00\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.NewRecs)
	assert.EqualValues(t, 0, stats.FailedRecs)
	assert.Equal(t, 2, ctx.TupleCount())
}

func TestLoadRemapsSourceColumnsOutOfOrder(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	// Source order is revenue, app_id, country: opposite of schema order,
	// and count isn't present in the source at all.
	body := "1.50\t42\tUS\n"
	stats, err := Load(ctx, tbl, Descriptor{
		Table:   "installs",
		Columns: []string{"revenue", "app_id", "country"},
	}, strings.NewReader(body), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.NewRecs)

	seg := st.SegmentAt(0)
	dict := ctx.Dictionary(0)
	assert.Equal(t, "US", dict.Decode(seg.Dim(0, 0).Uint64()))
	assert.EqualValues(t, 42, seg.Dim(0, 1).Uint64())
	assert.EqualValues(t, 1, seg.Metric(0, 0).Num.Uint64()) // count defaults to 1 regardless of source
	assert.Equal(t, 1.50, seg.Metric(0, 1).Num.Float64())
}

func TestLoadEmptyStringFieldBecomesEmptyString(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	// The row's string dimension (country) is an empty field; an empty
	// string is a valid value for a string dimension, so the row still
	// ingests.
	body := "\t42\t\t1.50\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.NewRecs)

	seg := st.SegmentAt(0)
	dict := ctx.Dictionary(0)
	assert.Equal(t, "", dict.Decode(seg.Dim(0, 0).Uint64()))
}

func TestLoadMissingTrailingNumericFieldFailsTheRow(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	// Row is short its trailing numeric metric (revenue); an empty string
	// is not a valid numeric value, so the row is counted as failed
	// rather than silently defaulted to zero.
	body := "US\t42\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.NewRecs)
	require.EqualValues(t, 1, stats.FailedRecs)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 1, stats.Errors[0].Line)
}

func TestLoadBlankLineIsProcessedAsAllEmptyFieldsRow(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	// The blank second line carries no fields: app_id (a numeric
	// dimension) and revenue (a numeric metric) both default to empty
	// string and fail to parse, so it's counted as a failed row rather
	// than silently dropped and left out of every stat.
	body := "US\t42\t\t1.50\n\nFR\t7\t\t2.00\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.NewRecs)
	require.EqualValues(t, 1, stats.FailedRecs)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 2, stats.Errors[0].Line)
}

func TestLoadTooManyFieldsAbortsAtLineNumber(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	body := "US\t42\t\t1.50\nFR\t7\t\t2.00\textra\nDE\t9\t\t3.00\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	// The first, well-formed row was already ingested before the abort.
	assert.EqualValues(t, 1, stats.NewRecs)
}

func TestLoadRowParseFailureIsRecordedNotFatal(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	// app_id is declared uint; "oops" fails to parse, but the load
	// continues to the next row.
	body := "US\toops\t\t1.50\nFR\t7\t\t2.00\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)

	require.EqualValues(t, 1, stats.NewRecs)
	require.EqualValues(t, 1, stats.FailedRecs)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 1, stats.Errors[0].Line)
}

func TestLoadPartitionFilterDropsOtherPartitions(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)

	pf, err := buildPartitionFilter(&PartitionFilterDescriptor{
		Columns:         []string{"country"},
		TotalPartitions: 2,
		Values:          []uint32{0},
	}, nil, tbl)
	require.NoError(t, err)

	ctx := upsert.New(tbl, st, pf)
	body := "US\t1\t\t1.0\nFR\t2\t\t2.0\nDE\t3\t\t3.0\nJP\t4\t\t4.0\n"
	stats, err := Load(ctx, tbl, Descriptor{Table: "installs"}, strings.NewReader(body), 0)
	require.NoError(t, err)

	assert.Less(t, int(stats.NewRecs), 4)
}

func TestLoadDescriptorPartitionFilterAppliesPerLoad(t *testing.T) {
	tbl := installsTable(t)
	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil) // no table-level filter

	body := "US\t1\t\t1.0\nFR\t2\t\t2.0\nDE\t3\t\t3.0\nJP\t4\t\t4.0\n"
	d := Descriptor{
		Table: "installs",
		PartitionFilter: &PartitionFilterDescriptor{
			Columns:         []string{"country"},
			TotalPartitions: 2,
			Values:          []uint32{0},
		},
	}
	stats, err := Load(ctx, tbl, d, strings.NewReader(body), 0)
	require.NoError(t, err)
	assert.Less(t, int(stats.NewRecs), 4)
}

func TestBuildMappingRejectsUnknownColumn(t *testing.T) {
	tbl := installsTable(t)
	_, err := buildMapping(tbl, []string{"country", "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
