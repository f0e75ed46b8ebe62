package spectrum

import (
	"fmt"
	"math"

	"github.com/cwbudde/voxshift/dsp/core"
)

// Goertzel evaluates one DFT term incrementally.
//
// The analyzer accumulates every sample processed since the last Reset().
// Power() then equals |X(f)|^2 of a DFT over those samples.
type Goertzel struct {
	frequency  float64
	sampleRate float64
	coeff      float64
	s0, s1     float64
}

// NewGoertzel creates an analyzer for frequency, which must lie in
// [0, sampleRate/2].
func NewGoertzel(frequency, sampleRate float64) (*Goertzel, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("goertzel: sample rate must be > 0: %v: %w", sampleRate, core.ErrInvalidParameter)
	}
	if !core.IsFinite(frequency) || frequency < 0 || frequency > sampleRate/2 {
		return nil, fmt.Errorf("goertzel: frequency must be between 0 and sampleRate/2: %v: %w", frequency, core.ErrInvalidParameter)
	}

	return &Goertzel{
		frequency:  frequency,
		sampleRate: sampleRate,
		coeff:      2 * math.Cos(2*math.Pi*frequency/sampleRate),
	}, nil
}

// Reset clears the internal state.
func (g *Goertzel) Reset() {
	g.s0 = 0
	g.s1 = 0
}

// ProcessBlock updates the internal state with a block of samples.
func (g *Goertzel) ProcessBlock(input []float64) {
	s0, s1 := g.s0, g.s1

	coeff := g.coeff
	for _, x := range input {
		s := x + coeff*s0 - s1
		s1 = s0
		s0 = s
	}

	g.s0, g.s1 = s0, s1
}

// Power returns the squared magnitude of the frequency component.
func (g *Goertzel) Power() float64 {
	return g.s0*g.s0 + g.s1*g.s1 - g.coeff*g.s0*g.s1
}

// Frequency returns the target frequency.
func (g *Goertzel) Frequency() float64 { return g.frequency }

// AnalyzeBlock computes the Goertzel power for a single frequency in one shot.
func AnalyzeBlock(input []float64, frequency, sampleRate float64) (float64, error) {
	g, err := NewGoertzel(frequency, sampleRate)
	if err != nil {
		return 0, err
	}

	g.ProcessBlock(input)

	return g.Power(), nil
}
