// Package gain applies a static scalar gain to mono blocks.
//
// Output is never clamped: samples may leave [-1, 1] and it is up to the
// device layer to clip.
package gain

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"github.com/cwbudde/voxshift/dsp/core"
)

// FromDB converts a gain in decibels to a linear scalar.
func FromDB(db float64) float64 {
	return core.DBToLinear(db)
}

// Apply returns a new block with every sample multiplied by g.
func Apply(block []float64, g float64) []float64 {
	out := make([]float64, len(block))
	ApplyInto(out, block, g)
	return out
}

// ApplyInto writes src*g into dst. Only min(len(dst), len(src)) samples
// are written.
func ApplyInto(dst, src []float64, g float64) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = src[i] * g
	}
}

// Stage multiplies fixed-length blocks by a constant gain using a
// pre-filled coefficient vector.
type Stage struct {
	gain   float64
	coeffs []float64
}

// NewStage returns a stage for blocks of up to blockSize samples.
func NewStage(g float64, blockSize int) (*Stage, error) {
	if !core.IsFinite(g) {
		return nil, fmt.Errorf("gain: value must be finite: %f: %w", g, core.ErrInvalidParameter)
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("gain: block size must be >= 0: %d: %w", blockSize, core.ErrInvalidParameter)
	}
	coeffs := make([]float64, blockSize)
	core.Fill(coeffs, g)
	return &Stage{gain: g, coeffs: coeffs}, nil
}

// Gain returns the linear gain.
func (s *Stage) Gain() float64 { return s.gain }

// Process writes src*gain into dst. dst and src must have equal length no
// larger than the configured block size; they may alias.
func (s *Stage) Process(dst, src []float64) error {
	if len(dst) != len(src) || len(src) > len(s.coeffs) {
		return fmt.Errorf("gain: dst/src hold %d/%d samples, block size %d: %w",
			len(dst), len(src), len(s.coeffs), core.ErrInvalidParameter)
	}
	vecmath.MulBlock(dst, src, s.coeffs[:len(src)])
	return nil
}
