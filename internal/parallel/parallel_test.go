package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_ZeroValueIsSequential(t *testing.T) {
	var cfg Config

	if got := cfg.Workers(); got != 1 {
		t.Fatalf("Expected 1 worker for zero config, got %d", got)
	}

	order := make([]int, 0, 100)
	For(100, func(i int) {
		order = append(order, i) // Safe only when sequential.
	}, cfg)

	for i, v := range order {
		if v != i {
			t.Fatalf("Expected in-order execution, got %d at position %d", v, i)
		}
	}
}

func TestFor_EveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	n := 1001
	hits := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	}, cfg)

	for i, h := range hits {
		if h != 1 {
			t.Errorf("Index %d visited %d times", i, h)
		}
	}
}

func TestFor_SmallChunk(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64}

	var counter int64
	For(10, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 10 {
		t.Errorf("Expected 10, got %d", counter)
	}
}

func TestWorkers_DefaultsToCPUCount(t *testing.T) {
	cfg := Config{Enabled: true}
	if cfg.Workers() < 1 {
		t.Errorf("Expected at least 1 worker, got %d", cfg.Workers())
	}
}
