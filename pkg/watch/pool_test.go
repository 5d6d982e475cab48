package watch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsJobsSequentiallyWhenSizeOne(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	var order []int
	done := make(chan struct{})
	p.Submit(func() {
		order = append(order, 1)
	})
	p.Run(func() {
		order = append(order, 2)
		close(done)
	})
	<-done

	require.Len(t, order, 2)
	assert.Equal(t, []int{1, 2}, order)
}

func TestPoolRunBlocksUntilJobCompletes(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var ran atomic.Bool
	p.Run(func() {
		time.Sleep(5 * time.Millisecond)
		ran.Store(true)
	})
	assert.True(t, ran.Load())
}

func TestPoolSizeReportsWorkerCount(t *testing.T) {
	p := NewPool(3)
	defer p.Close()
	assert.Equal(t, 3, p.Size())
}

func TestNewPoolDefaultsZeroOrNegativeToOne(t *testing.T) {
	p := NewPool(0)
	defer p.Close()
	assert.Equal(t, 1, p.Size())
}

func TestPoolsCloseShutsDownBothPools(t *testing.T) {
	pools := NewPools(1, 4)
	assert.Equal(t, 1, pools.Write.Size())
	assert.Equal(t, 4, pools.Read.Size())
	pools.Close()
}
