package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items across runtime.NumCPU() workers and calls fn for
// each contiguous range [start, end).
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, 0, fn)
}

// ParallelizeWorkers is Parallelize with an explicit worker count.
// workers <= 0 means runtime.NumCPU(). fn must only write to state owned by
// its own range; the call returns after every range has finished.
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
	}

	// Ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
