package upsert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
)

func buildTable(t *testing.T, desc schema.TableDescriptor) *schema.Table {
	tbl, err := schema.Build(desc)
	require.NoError(t, err)
	return tbl
}

func newContext(t *testing.T, tbl *schema.Table) (*Context, *store.Store) {
	st := store.New(tbl)
	return New(tbl, st, nil), st
}

func basicTable(t *testing.T) *schema.Table {
	return buildTable(t, schema.TableDescriptor{
		Name:        "installs",
		SegmentSize: 4,
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country"},
			{Name: "app_id", Type: "uint"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
			{Name: "revenue", Type: "double_sum"},
			{Name: "price", Type: "double_avg"},
		},
	})
}

func TestProcessRowInsertsNewTuple(t *testing.T) {
	tbl := basicTable(t)
	ctx, st := newContext(t, tbl)

	err := ctx.ProcessRow(Row{
		DimFields: []string{"US", "42"},
		MetFields: []string{"", "1.50", "1.50"},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, ctx.TupleCount())
	assert.Equal(t, uint64(1), ctx.Stats().NewRecs)

	seg := st.SegmentAt(0)
	assert.Equal(t, 1, seg.Size())
	assert.EqualValues(t, 1, seg.Metric(0, 0).Num.Uint64()) // count
}

func TestProcessRowUpsertsMatchingTuple(t *testing.T) {
	tbl := basicTable(t)
	ctx, st := newContext(t, tbl)

	row := Row{DimFields: []string{"US", "42"}, MetFields: []string{"", "1.50", "1.50"}}
	require.NoError(t, ctx.ProcessRow(row, 0))
	require.NoError(t, ctx.ProcessRow(row, 0))

	assert.Equal(t, 1, ctx.TupleCount(), "same dimension tuple must merge into one record")
	assert.Equal(t, uint64(1), ctx.Stats().NewRecs)

	seg := st.SegmentAt(0)
	assert.Equal(t, 1, seg.Size())
	assert.EqualValues(t, 2, seg.Metric(0, 0).Num.Uint64())            // count summed
	assert.InDelta(t, 3.0, seg.Metric(0, 1).Num.Float64(), 0.0001)     // revenue summed
	assert.InDelta(t, 3.0, seg.Metric(0, 2).Num.Float64(), 0.0001)     // avg numerator summed
}

func TestProcessRowDistinctTuplesDoNotMerge(t *testing.T) {
	tbl := basicTable(t)
	ctx, _ := newContext(t, tbl)

	require.NoError(t, ctx.ProcessRow(Row{
		DimFields: []string{"US", "42"},
		MetFields: []string{"", "1.0", "1.0"},
	}, 0))
	require.NoError(t, ctx.ProcessRow(Row{
		DimFields: []string{"FR", "42"},
		MetFields: []string{"", "1.0", "1.0"},
	}, 0))

	assert.Equal(t, 2, ctx.TupleCount())
}

func TestProcessRowRotatesSegmentOnceFull(t *testing.T) {
	tbl := basicTable(t) // segment size 4
	ctx, st := newContext(t, tbl)

	for i := 0; i < 5; i++ {
		country := string(rune('A' + i))
		require.NoError(t, ctx.ProcessRow(Row{
			DimFields: []string{country, "1"},
			MetFields: []string{"", "1.0", "1.0"},
		}, 0))
	}

	assert.Equal(t, 5, ctx.TupleCount())
	assert.Equal(t, 2, st.SegmentCount())
	assert.Equal(t, 4, st.SegmentAt(0).Size())
	assert.Equal(t, 1, st.SegmentAt(1).Size())
}

func TestProcessRowBitsetMetricDeduplicatesMembers(t *testing.T) {
	tbl := buildTable(t, schema.TableDescriptor{
		Name: "events",
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "uniques", Type: "bitset"},
		},
	})
	ctx, st := newContext(t, tbl)

	for i := 0; i < 3; i++ {
		require.NoError(t, ctx.ProcessRow(Row{
			DimFields: []string{"US"},
			MetFields: []string{"7"},
		}, 0))
	}
	require.NoError(t, ctx.ProcessRow(Row{
		DimFields: []string{"US"},
		MetFields: []string{"8"},
	}, 0))

	seg := st.SegmentAt(0)
	cell := seg.Metric(0, 0)
	require.NotNil(t, cell.BM)
	assert.EqualValues(t, 2, cell.BM.Cardinality())
}

func TestProcessRowCardinalityGuardRemapsExcess(t *testing.T) {
	tbl := buildTable(t, schema.TableDescriptor{
		Name: "sessions",
		Dimensions: []schema.DimensionDescriptor{
			{Name: "user_id", CardinalityGuard: &schema.CardinalityGuardDesc{
				CompanionDims: []string{"country"},
				Limit:         1,
			}},
			{Name: "country"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
		},
	})
	ctx, _ := newContext(t, tbl)

	require.NoError(t, ctx.ProcessRow(Row{DimFields: []string{"alice", "US"}, MetFields: []string{""}}, 0))
	require.NoError(t, ctx.ProcessRow(Row{DimFields: []string{"bob", "US"}, MetFields: []string{""}}, 0))
	require.NoError(t, ctx.ProcessRow(Row{DimFields: []string{"carol", "US"}, MetFields: []string{""}}, 0))

	// All three rows share the companion key ("US") with a limit of 1
	// distinct user_id: alice's value stays under the cap, bob's and
	// carol's both exceed it and remap to the same sentinel code, so
	// they collapse into one record alongside alice's.
	assert.Equal(t, 2, ctx.TupleCount())
}

func TestProcessRowPartitionFilterSkipsRejectedRows(t *testing.T) {
	tbl := basicTable(t)
	st := store.New(tbl)
	pf := &PartitionFilter{
		KeyColumns:      []int{0},
		TotalPartitions: 1000000,
		Accepted:        map[uint32]struct{}{}, // nothing accepted
	}
	ctx := New(tbl, st, pf)

	require.NoError(t, ctx.ProcessRow(Row{
		DimFields: []string{"US", "42"},
		MetFields: []string{"", "1.0", "1.0"},
	}, 0))

	assert.Equal(t, 0, ctx.TupleCount())
	assert.Equal(t, uint64(0), ctx.Stats().NewRecs)
}
