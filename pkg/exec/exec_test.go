package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/filter"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
	"github.com/viyadb/viyadb/pkg/upsert"
)

func buildInstalls(t *testing.T) (*schema.Table, *store.Store, *upsert.Context, []*dict.Dictionary) {
	tbl, err := schema.Build(schema.TableDescriptor{
		Name:        "installs",
		SegmentSize: 8,
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country", Cardinality: 16},
			{Name: "install_time", Type: "time", Granularity: "micros"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
			{Name: "revenue", Type: "double_sum"},
			{Name: "price", Type: "double_avg"},
			{Name: "users", Type: "bitset"},
		},
	})
	require.NoError(t, err)

	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)

	dicts := make([]*dict.Dictionary, len(tbl.Dimensions))
	dicts[0] = ctx.Dictionary(0)

	rows := []upsert.Row{
		{DimFields: []string{"US", "1000"}, MetFields: []string{"", "10.0", "10.0", "1"}},
		{DimFields: []string{"US", "2000"}, MetFields: []string{"", "20.0", "20.0", "2"}},
		{DimFields: []string{"US", "3000"}, MetFields: []string{"", "30.0", "30.0", "1"}},
		{DimFields: []string{"FR", "1500"}, MetFields: []string{"", "5.0", "5.0", "3"}},
	}
	for _, r := range rows {
		require.NoError(t, ctx.ProcessRow(r, 4000))
	}

	return tbl, st, ctx, dicts
}

func buildPlan(t *testing.T, tbl *schema.Table, dicts []*dict.Dictionary, d query.Descriptor) *query.Plan {
	d.Table = tbl.Name
	plan, err := query.Build(d, tbl, dicts)
	require.NoError(t, err)
	return plan
}

func TestRunAggregateGroupsByDimensionAndSumsMetric(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"revenue"},
		Sort:       []query.SortColumn{{Column: "country", Ascending: true}},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"FR", "5"}, res.Rows[0])
	assert.Equal(t, []string{"US", "60"}, res.Rows[1])
}

func TestRunAggregateAveragesAcrossMergedUpdates(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"price"},
		Filter:     filter.Descriptor{Op: "eq", Column: "country", Value: "US"},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "20", res.Rows[0][1])
}

func TestRunAggregateBitsetReportsDistinctCount(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"users"},
		Sort:       []query.SortColumn{{Column: "country", Ascending: true}},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"FR", "1"}, res.Rows[0])
	assert.Equal(t, []string{"US", "2"}, res.Rows[1])
}

func TestRunAggregateHavingFiltersOutputRows(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	having := filter.Descriptor{Op: "gt", Column: "revenue", Value: "10"}
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"revenue"},
		Having:     &having,
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "US", res.Rows[0][0])
}

func TestRunAggregateRollsUpTimeToRequestedGranularity(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type: "aggregate",
		Select: []query.SelectColumn{
			{Column: "install_time", Granularity: "hour"},
			{Column: "count"},
		},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "4", res.Rows[0][1])
}

func TestRunSelectReturnsOneRowPerTuple(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "select",
		Dimensions: []string{"country"},
		Metrics:    []string{"revenue"},
		Sort:       []query.SortColumn{{Column: "revenue", Ascending: true}},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, []string{"FR", "5"}, res.Rows[0])
	assert.Equal(t, []string{"US", "30"}, res.Rows[3])
}

func TestRunSearchMatchesSubstringCaseInsensitively(t *testing.T) {
	tbl, st, _, dicts := buildInstalls(t)
	_ = st
	plan := buildPlan(t, tbl, dicts, query.Descriptor{Type: "search", Dimension: "country", Term: "u"})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "US", res.Rows[0][0])
}

func TestRunAggregateCardinalityGuardCollapsesExcessOntoSentinel(t *testing.T) {
	tbl, err := schema.Build(schema.TableDescriptor{
		Name:        "guarded",
		SegmentSize: 8,
		Dimensions: []schema.DimensionDescriptor{
			{Name: "site", Cardinality: 16},
			{
				Name:        "user",
				Cardinality: 16,
				CardinalityGuard: &schema.CardinalityGuardDesc{
					CompanionDims: []string{"site"},
					Limit:         1,
				},
			},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
		},
	})
	require.NoError(t, err)

	st := store.New(tbl)
	ctx := upsert.New(tbl, st, nil)
	dicts := []*dict.Dictionary{ctx.Dictionary(0), ctx.Dictionary(1)}

	for _, user := range []string{"alice", "bob", "carol"} {
		require.NoError(t, ctx.ProcessRow(upsert.Row{DimFields: []string{"s1", user}, MetFields: []string{""}}, 0))
	}

	plan := buildPlan(t, tbl, dicts, query.Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"user"},
		Metrics:    []string{"count"},
	})

	res, err := Run(plan, st, dicts)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2) // alice keeps her own code, bob/carol collapse onto the sentinel
}
