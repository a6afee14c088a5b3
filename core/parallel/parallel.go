// Package parallel provides the structured fan-out/fan-in helpers used by
// inference and batch prediction.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// ForEach runs fn(i) for every i in [0, n) concurrently, at most
// runtime.NumCPU() at a time, and returns the first error. A panic inside
// fn is returned as a *errors.PanicError.
func ForEach(n int, fn func(i int) error) error {
	return forEach(n, runtime.NumCPU(), fn)
}

// ForEachUnbounded is ForEach with one goroutine per index. It suits small
// n where every task must run concurrently, such as one task per class
// state during inference.
func ForEachUnbounded(n int, fn func(i int) error) error {
	return forEach(n, -1, fn)
}

func forEach(n, limit int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return errors.SafeExecute("parallel.ForEach", func() error {
				return fn(i)
			})
		})
	}
	return g.Wait()
}

// Parallelize divides items into one contiguous range per CPU core and
// runs fn on every range (start, end) concurrently.
func Parallelize(items int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		g.Go(func() error {
			return errors.SafeExecute("parallel.Parallelize", func() error {
				return fn(start, end)
			})
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) sequentially when items is at
// most threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int) error) error {
	if items <= threshold {
		if items == 0 {
			return nil
		}
		return fn(0, items)
	}
	return Parallelize(items, fn)
}
