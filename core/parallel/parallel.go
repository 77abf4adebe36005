// Package parallel provides chunked fan-out helpers used by the featurizer.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into at most workers contiguous ranges and runs
// fn on each range in its own goroutine. workers <= 0 means GOMAXPROCS.
// It returns once every range has been processed.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when items
// does not exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, workers, fn)
}
