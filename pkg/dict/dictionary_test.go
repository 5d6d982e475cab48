package dict

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := New(0)
	code := d.Encode("US")
	require.NotEqual(t, ExceededCode, code)
	assert.Equal(t, "US", d.Decode(code))

	// Stable on re-encode.
	assert.Equal(t, code, d.Encode("US"))
}

func TestSentinelPreseeded(t *testing.T) {
	d := New(0)
	assert.Equal(t, exceededValue, d.Decode(ExceededCode))
	assert.EqualValues(t, 1, d.Size())
}

func TestCardinalityOverflowRemapsToSentinel(t *testing.T) {
	d := New(2) // sentinel + 1 real code
	first := d.Encode("a")
	require.NotEqual(t, ExceededCode, first)

	// Second distinct value exceeds capacity.
	overflow := d.Encode("b")
	assert.Equal(t, ExceededCode, overflow)
}

func TestLookupDoesNotMutate(t *testing.T) {
	d := New(0)
	_, ok := d.Lookup("missing")
	assert.False(t, ok)
	assert.EqualValues(t, 1, d.Size())
}

func TestConcurrentEncodeStableCodes(t *testing.T) {
	d := New(0)
	var wg sync.WaitGroup
	codes := make([]uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = d.Encode("shared")
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		assert.Equal(t, codes[0], c)
	}
}
