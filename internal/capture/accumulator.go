// Package capture implements the append-only sample accumulator that feeds
// analysis cycles. A single producer appends streamed chunks; the analysis
// worker takes ownership of the accumulated signal one snapshot at a time.
package capture

import (
	"sync"
)

// Accumulator collects captured audio samples between analysis cycles.
// Appends preserve arrival order. All methods are safe for concurrent use;
// appending is amortized O(1) and never waits on analysis work.
type Accumulator struct {
	data []float64
	size int
	mu   sync.Mutex
}

// NewAccumulator creates an accumulator with the given initial capacity
// in samples. The accumulator grows automatically beyond it.
func NewAccumulator(capacity int) *Accumulator {
	if capacity < 1 {
		capacity = 1
	}

	return &Accumulator{
		data: make([]float64, capacity),
	}
}

// Append concatenates a chunk of samples in arrival order.
// The chunk is copied; the caller may reuse its slice.
func (a *Accumulator) Append(chunk []float64) {
	if len(chunk) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.size+len(chunk) > len(a.data) {
		a.grow(a.size + len(chunk))
	}

	copy(a.data[a.size:], chunk)
	a.size += len(chunk)
}

// Len returns the number of accumulated samples.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// Ready reports whether at least requiredLength samples have accumulated.
func (a *Accumulator) Ready(requiredLength int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size >= requiredLength
}

// Reset discards all accumulated samples, keeping the allocation.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = 0
}

// TakeSnapshot returns the accumulated signal and empties the accumulator in
// one critical section. The returned slice is exclusively owned by the
// caller: subsequent appends go to a fresh backing array, so an analysis
// worker can read the snapshot while capture continues.
func (a *Accumulator) TakeSnapshot() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.data[:a.size:a.size]
	a.data = make([]float64, cap(a.data))
	a.size = 0
	return snap
}

// grow increases capacity by doubling until minCapacity fits.
// Caller must hold the mutex.
func (a *Accumulator) grow(minCapacity int) {
	newCapacity := len(a.data)
	for newCapacity < minCapacity {
		newCapacity *= 2
	}

	newData := make([]float64, newCapacity)
	copy(newData, a.data[:a.size])
	a.data = newData
}
