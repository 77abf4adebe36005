package parallel

import (
	"sync"
	"testing"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"more items than workers", 103, 4},
		{"more workers than items", 3, 16},
		{"default workers", 50, 0},
		{"single item", 1, 2},
		{"no items", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int, tt.items)
			var mu sync.Mutex
			Parallelize(tt.items, tt.workers, func(start, end int) {
				mu.Lock()
				defer mu.Unlock()
				for i := start; i < end; i++ {
					seen[i]++
				}
			})
			for i, n := range seen {
				if n != 1 {
					t.Fatalf("item %d processed %d times", i, n)
				}
			}
		})
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, 8, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("expected a single range [0,10), got [%d,%d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected 1 call below threshold, got %d", calls)
	}
}
