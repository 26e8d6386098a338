// Package parallel splits per-point work across goroutines.
//
// Neighbourhood searches (ball query, 3-NN interpolation, Chamfer
// matching) are independent per query point, so they run as chunks of a
// flat index range.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split.
type Config struct {
	Enabled  bool // run chunks concurrently
	Workers  int  // upper bound on concurrent chunks
	MinChunk int  // smallest number of items worth a goroutine
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:  n > 1,
		Workers:  n,
		MinChunk: 32,
	}
}

// Sequential runs everything on the calling goroutine.
func Sequential() Config {
	return Config{Workers: 1, MinChunk: 1}
}

// Range calls f on disjoint [lo, hi) chunks covering [0, n).
// f must only write to state owned by its chunk.
func Range(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.Workers < 2 || n < 2*max(cfg.MinChunk, 1) {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinChunk)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n).
func For(n int, f func(i int), cfg Config) {
	Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	}, cfg)
}

// ForEach calls f(b, i) for every query i of every batch item b.
func ForEach(batch, queries int, f func(b, i int), cfg Config) {
	For(batch*queries, func(k int) {
		f(k/queries, k%queries)
	}, cfg)
}
