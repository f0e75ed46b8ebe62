package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/voxshift/dsp/core"
)

// Shifter is the shared API of the pitch processors.
//
// Process writes len(src) samples into dst; both slices must have the same
// length. Implementations are mono and not safe for concurrent use.
type Shifter interface {
	Process(dst, src []float64) error
	Latency() int
	Ratio() float64
	Reset()
}

var (
	_ Shifter = (*StreamShifter)(nil)
	_ Shifter = (*BlockShifter)(nil)
)

// Mode selects a Shifter implementation.
type Mode string

const (
	ModeStream Mode = "stream"
	ModeBlock  Mode = "block"
)

// New returns the shifter for mode. blockSize bounds the block length the
// shifter accepts.
func New(mode Mode, sampleRate, ratio float64, blockSize int, opts ...Option) (Shifter, error) {
	switch mode {
	case ModeStream, "":
		return NewStreamShifter(sampleRate, ratio, opts...)
	case ModeBlock:
		return NewBlockShifter(sampleRate, ratio, blockSize, opts...)
	default:
		return nil, fmt.Errorf("pitch: unknown mode %q: %w", mode, core.ErrInvalidParameter)
	}
}

// Shift pitch-shifts one block in isolation and returns a new block of the
// same length. It uses the per-block algorithm of [BlockShifter].
func Shift(block []float64, ratio, sampleRate float64) ([]float64, error) {
	s, err := NewBlockShifter(sampleRate, ratio, len(block))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(block))
	if err := s.Process(out, block); err != nil {
		return nil, err
	}
	return out, nil
}

// Semitones converts a frequency ratio to semitones.
func Semitones(ratio float64) float64 { return core.RatioToSemitones(ratio) }

// Ratio converts semitones to a frequency ratio.
func Ratio(semitones float64) float64 { return core.SemitonesToRatio(semitones) }

func validateRatio(sampleRate, ratio float64) error {
	if !core.IsFinitePositive(sampleRate) {
		return fmt.Errorf("pitch: sample rate must be positive and finite: %f: %w", sampleRate, core.ErrInvalidParameter)
	}
	if !core.IsFinitePositive(ratio) {
		return fmt.Errorf("pitch: ratio must be positive and finite: %f: %w", ratio, core.ErrInvalidParameter)
	}
	return nil
}

func isIdentity(ratio float64) bool {
	return ratio == 1
}

func checkLengths(dst, src []float64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("pitch: dst holds %d samples, src %d: %w", len(dst), len(src), core.ErrInvalidParameter)
	}
	return nil
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}

	return x - math.Pi
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
