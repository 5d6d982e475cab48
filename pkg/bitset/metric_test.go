package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingletonCardinality(t *testing.T) {
	m := NewSingleton(42)
	assert.EqualValues(t, 1, m.Cardinality())
}

func TestUpdateIsUnion(t *testing.T) {
	a := NewSingleton(1)
	b := NewSingleton(1)
	b.Add(2)
	a.Update(b)
	assert.EqualValues(t, 2, a.Cardinality())
}

func TestUpdateIdempotentOnSameValue(t *testing.T) {
	// Ingesting the same row twice for a BITSET metric yields a
	// 1-cardinality set: Update on an already-observed member is a no-op.
	a := NewSingleton(7)
	a.Update(NewSingleton(7))
	assert.EqualValues(t, 1, a.Cardinality())
}

func TestOptimizeDoesNotChangeCardinality(t *testing.T) {
	m := New()
	for i := uint32(0); i < 1000; i++ {
		m.Add(i)
	}
	before := m.Cardinality()
	m.Optimize()
	assert.Equal(t, before, m.Cardinality())
}
