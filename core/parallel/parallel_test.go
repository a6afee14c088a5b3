package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

func TestForEach(t *testing.T) {
	results := make([]int, 10)
	var mu sync.Mutex
	err := ForEach(len(results), func(i int) error {
		mu.Lock()
		defer mu.Unlock()
		results[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestForEachReturnsError(t *testing.T) {
	want := errors.New("class 2 failed")
	err := ForEach(4, func(i int) error {
		if i == 2 {
			return want
		}
		return nil
	})
	assert.True(t, errors.Is(err, want))
}

func TestForEachRecoversPanic(t *testing.T) {
	err := ForEach(3, func(i int) error {
		if i == 1 {
			panic("bad factor")
		}
		return nil
	})
	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "bad factor", panicErr.PanicValue)
}

func TestForEachZero(t *testing.T) {
	called := false
	require.NoError(t, ForEach(0, func(int) error { called = true; return nil }))
	assert.False(t, called)
}

func TestForEachUnboundedRunsAllTasksTogether(t *testing.T) {
	// every task waits for all others to start, so a bounded pool would block
	n := runtime.NumCPU() + 3
	var started sync.WaitGroup
	started.Add(n)
	done := make(chan error, 1)
	go func() {
		done <- ForEachUnbounded(n, func(int) error {
			started.Done()
			started.Wait()
			return nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not run concurrently")
	}
}

func TestForEachUnboundedRecoversPanic(t *testing.T) {
	err := ForEachUnbounded(2, func(i int) error {
		if i == 0 {
			panic("bad class")
		}
		return nil
	})
	var panicErr *errors.PanicError
	assert.True(t, errors.As(err, &panicErr))
}

func TestParallelizeCoversAllItems(t *testing.T) {
	for _, items := range []int{1, 7, 100, 1001} {
		var sum int64
		seen := make([]int32, items)
		err := Parallelize(items, func(start, end int) error {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
				atomic.AddInt64(&sum, int64(i))
			}
			return nil
		})
		require.NoError(t, err)
		for i := range seen {
			assert.Equal(t, int32(1), seen[i], "item %d", i)
		}
		assert.Equal(t, int64(items*(items-1)/2), sum)
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	calls := 0
	err := ParallelizeWithThreshold(10, 100, func(start, end int) error {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
