// Package parallel provides chunked fan-out helpers for per-point work.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
// The zero value runs everything on the calling goroutine.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines. 0 = runtime.NumCPU().
	MinChunkSize int  // Minimum points per goroutine to avoid overhead.
}

// DefaultConfig returns a parallel configuration sized to the CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Workers returns the effective number of workers for cfg.
func (c Config) Workers() int {
	if !c.Enabled {
		return 1
	}
	if c.NumWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.NumWorkers
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
// f must only write state owned by index i.
func For(n int, f func(i int), cfg Config) {
	workers := cfg.Workers()
	if workers <= 1 || n < cfg.MinChunkSize || n < 2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+workers-1)/workers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
