package buffer

import (
	"fmt"

	"github.com/cwbudde/voxshift/dsp/core"
)

// Ring is a circular buffer holding the most recent Cap() samples.
// Slots that were never written read as zero.
type Ring struct {
	data     []float64
	writePos int
	filled   int
}

// NewRing returns a ring of fixed capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer: ring capacity must be > 0: %d: %w", capacity, core.ErrInvalidParameter)
	}
	return &Ring{data: make([]float64, capacity)}, nil
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Len returns the number of valid samples, saturating at Cap().
func (r *Ring) Len() int {
	return r.filled
}

// Write appends one sample, overwriting the oldest when full.
func (r *Ring) Write(sample float64) {
	r.data[r.writePos] = sample
	r.writePos++
	if r.writePos == len(r.data) {
		r.writePos = 0
	}
	if r.filled < len(r.data) {
		r.filled++
	}
}

// WriteBlock appends every sample of src in order.
func (r *Ring) WriteBlock(src []float64) {
	for _, v := range src {
		r.Write(v)
	}
}

// Latest copies the most recent len(dst) samples into dst, oldest first.
func (r *Ring) Latest(dst []float64) error {
	n := len(dst)
	size := len(r.data)
	if n > size {
		return fmt.Errorf("buffer: requested %d samples from ring of capacity %d: %w", n, size, core.ErrInvalidParameter)
	}
	start := (r.writePos - n + size) % size
	first := min(n, size-start)
	copy(dst[:first], r.data[start:start+first])
	copy(dst[first:], r.data[:n-first])
	return nil
}

// Reset clears all samples.
func (r *Ring) Reset() {
	core.Zero(r.data)
	r.writePos = 0
	r.filled = 0
}
