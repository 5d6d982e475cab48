package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/filter"
	"github.com/viyadb/viyadb/pkg/schema"
)

func testSchema(t *testing.T) (*schema.Table, []*dict.Dictionary) {
	tbl, err := schema.Build(schema.TableDescriptor{
		Name: "installs",
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country"},
			{Name: "install_time", Type: "time"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
			{Name: "revenue", Type: "double_sum"},
		},
	})
	require.NoError(t, err)

	dicts := make([]*dict.Dictionary, len(tbl.Dimensions))
	dicts[0] = dict.New(0)
	return tbl, dicts
}

func TestBuildAggregateDefaultsToAllColumnsWhenNoneSelected(t *testing.T) {
	tbl, dicts := testSchema(t)
	plan, err := Build(Descriptor{Type: "aggregate", Table: "installs"}, tbl, dicts)
	require.NoError(t, err)
	require.Len(t, plan.Outputs, 4)
	assert.Equal(t, "country", plan.Outputs[0].Name)
	assert.Equal(t, "revenue", plan.Outputs[3].Name)
}

func TestBuildAggregateWithFilterAndSort(t *testing.T) {
	tbl, dicts := testSchema(t)
	dicts[0].Encode("US")

	plan, err := Build(Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"revenue"},
		Filter:     filter.Descriptor{Op: "eq", Column: "country", Value: "US"},
		Sort:       []SortColumn{{Column: "revenue", Ascending: false}},
		Limit:      10,
	}, tbl, dicts)
	require.NoError(t, err)

	require.Len(t, plan.Outputs, 2)
	require.Len(t, plan.Sort, 1)
	assert.Equal(t, 1, plan.Sort[0].OutputIdx)
	assert.False(t, plan.Sort[0].Ascending)
	assert.Equal(t, 10, plan.Limit)
}

func TestBuildHavingReferencesOutputColumn(t *testing.T) {
	tbl, dicts := testSchema(t)
	having := filter.Descriptor{Op: "gt", Column: "revenue", Value: "100"}
	plan, err := Build(Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Metrics:    []string{"revenue"},
		Having:     &having,
	}, tbl, dicts)
	require.NoError(t, err)
	require.NotNil(t, plan.Having)
}

func TestBuildRejectsUnknownSortColumn(t *testing.T) {
	tbl, dicts := testSchema(t)
	_, err := Build(Descriptor{
		Type:       "aggregate",
		Dimensions: []string{"country"},
		Sort:       []SortColumn{{Column: "revenue"}},
	}, tbl, dicts)
	assert.Error(t, err)
}

func TestBuildSearchResolvesDimension(t *testing.T) {
	tbl, dicts := testSchema(t)
	plan, err := Build(Descriptor{Type: "search", Dimension: "country", Term: "U"}, tbl, dicts)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.SearchDim)
	assert.Equal(t, "U", plan.SearchTerm)
}
