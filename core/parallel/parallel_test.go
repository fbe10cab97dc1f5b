package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeWorkersCoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 200} {
		hits := make([]int32, 101)
		ParallelizeWorkers(len(hits), workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: item %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestParallelizeNoItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	if called {
		t.Fatal("fn must not be called for zero items")
	}
}
