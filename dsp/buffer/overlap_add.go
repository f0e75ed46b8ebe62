package buffer

import (
	"fmt"

	"github.com/cwbudde/voxshift/dsp/core"
)

// OverlapAdd accumulates overlapping synthesis frames and releases finished
// samples from the front.
type OverlapAdd struct {
	data []float64
	head int
}

// NewOverlapAdd returns an accumulator able to hold frames of up to capacity samples.
func NewOverlapAdd(capacity int) (*OverlapAdd, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer: overlap-add capacity must be > 0: %d: %w", capacity, core.ErrInvalidParameter)
	}
	return &OverlapAdd{data: make([]float64, capacity)}, nil
}

// Cap returns the fixed capacity.
func (o *OverlapAdd) Cap() int {
	return len(o.data)
}

// Add sums src into the accumulator starting at the current front.
func (o *OverlapAdd) Add(src []float64) error {
	size := len(o.data)
	if len(src) > size {
		return fmt.Errorf("buffer: frame of %d samples exceeds overlap-add capacity %d: %w", len(src), size, core.ErrInvalidParameter)
	}
	idx := o.head
	for _, v := range src {
		o.data[idx] += v
		idx++
		if idx == size {
			idx = 0
		}
	}
	return nil
}

// Pop moves the first len(dst) finished samples into dst, zeroes their
// slots and advances the front.
func (o *OverlapAdd) Pop(dst []float64) error {
	size := len(o.data)
	if len(dst) > size {
		return fmt.Errorf("buffer: pop of %d samples exceeds overlap-add capacity %d: %w", len(dst), size, core.ErrInvalidParameter)
	}
	for i := range dst {
		dst[i] = o.data[o.head]
		o.data[o.head] = 0
		o.head++
		if o.head == size {
			o.head = 0
		}
	}
	return nil
}

// Reset clears the accumulator.
func (o *OverlapAdd) Reset() {
	core.Zero(o.data)
	o.head = 0
}
