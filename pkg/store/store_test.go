package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viyadb/viyadb/pkg/coltype"
	"github.com/viyadb/viyadb/pkg/schema"
)

func testTable(t *testing.T, segSize int) *schema.Table {
	tbl, err := schema.Build(schema.TableDescriptor{
		Name:        "t",
		SegmentSize: segSize,
		Dimensions: []schema.DimensionDescriptor{
			{Name: "country"},
			{Name: "install_time", Type: "uint"},
		},
		Metrics: []schema.MetricDescriptor{
			{Name: "count", Type: "count"},
			{Name: "revenue", Type: "double_sum"},
		},
	})
	require.NoError(t, err)
	return tbl
}

func TestSegmentFillsAndSeals(t *testing.T) {
	tbl := testTable(t, 2)
	seg := NewSegment(tbl, 2)

	dims := []coltype.AnyNum{coltype.NewUint(1), coltype.NewUint(100)}
	mets := []MetricCell{{Num: coltype.NewUint(1)}, {Num: coltype.NewFloat(1.5)}}

	idx0 := seg.Insert(dims, mets)
	assert.Equal(t, 0, idx0)
	assert.False(t, seg.Full())

	idx1 := seg.Insert(dims, mets)
	assert.Equal(t, 1, idx1)
	assert.True(t, seg.Full())

	idx2 := seg.Insert(dims, mets)
	assert.Equal(t, -1, idx2)
}

func TestSegmentStatsTrackNumericDim(t *testing.T) {
	tbl := testTable(t, 10)
	seg := NewSegment(tbl, 10)

	vals := []uint64{50, 10, 99, 30}
	for _, v := range vals {
		dims := []coltype.AnyNum{coltype.NewUint(1), coltype.NewUint(v)}
		mets := []MetricCell{{Num: coltype.NewUint(1)}, {Num: coltype.NewFloat(1)}}
		seg.Insert(dims, mets)
	}

	stats := seg.Stats(1)
	require.True(t, stats.Valid)
	assert.EqualValues(t, 10, stats.Min.Uint64())
	assert.EqualValues(t, 99, stats.Max.Uint64())
}

func TestStoreRotatesSegmentWhenFull(t *testing.T) {
	tbl := testTable(t, 1)
	st := New(tbl)

	s1 := st.LastSegment()
	dims := []coltype.AnyNum{coltype.NewUint(1), coltype.NewUint(1)}
	mets := []MetricCell{{Num: coltype.NewUint(1)}, {Num: coltype.NewFloat(1)}}
	s1.Insert(dims, mets)

	s2 := st.LastSegment()
	assert.NotSame(t, s1, s2)
	assert.Equal(t, 2, st.SegmentCount())
}

func TestSnapshotIsIndependentOfLaterAppends(t *testing.T) {
	tbl := testTable(t, 10)
	st := New(tbl)
	st.LastSegment()

	snap := st.Snapshot()
	require.Len(t, snap, 1)

	// Force a second segment by filling the first.
	seg := st.LastSegment()
	for seg.Size() < tbl.SegmentSize {
		dims := []coltype.AnyNum{coltype.NewUint(1), coltype.NewUint(uint64(seg.Size()))}
		mets := []MetricCell{{Num: coltype.NewUint(1)}, {Num: coltype.NewFloat(1)}}
		seg.Insert(dims, mets)
	}
	st.LastSegment() // rotates

	assert.Len(t, snap, 1, "snapshot taken before rotation must not observe the new segment")
	assert.Equal(t, 2, st.SegmentCount())
}
