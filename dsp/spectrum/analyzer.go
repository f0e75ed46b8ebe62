package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/window"
)

const (
	minAnalyzerSize = 16
	logFloor        = 1e-300
)

// Analyzer computes windowed magnitude spectra of blocks up to Size()
// samples. Shorter blocks are zero-padded. It is not safe for concurrent use.
type Analyzer struct {
	size       int
	sampleRate float64

	plan *algofft.Plan[complex128]
	win  []float64

	frame  []float64
	bins   []complex128
	re, im []float64
	mags   []float64
}

// NewAnalyzer returns an analyzer for a power-of-two transform size.
func NewAnalyzer(size int, sampleRate float64) (*Analyzer, error) {
	if size < minAnalyzerSize || !core.IsPowerOf2(size) {
		return nil, fmt.Errorf("spectrum: size must be power-of-two and >= %d: %d: %w",
			minAnalyzerSize, size, core.ErrInvalidParameter)
	}
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("spectrum: sample rate must be positive and finite: %f: %w",
			sampleRate, core.ErrInvalidParameter)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	bins := size/2 + 1
	return &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		plan:       plan,
		win:        window.Generate(window.TypeHann, size, window.WithPeriodic()),
		frame:      make([]float64, size),
		bins:       make([]complex128, size),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mags:       make([]float64, bins),
	}, nil
}

// Size returns the transform size.
func (a *Analyzer) Size() int { return a.size }

// BinHz returns the frequency spacing of adjacent bins.
func (a *Analyzer) BinHz() float64 { return a.sampleRate / float64(a.size) }

// Magnitudes returns |X[k]| for k in [0, Size()/2]. The returned slice is
// owned by the analyzer and overwritten by the next call.
func (a *Analyzer) Magnitudes(block []float64) ([]float64, error) {
	if len(block) > a.size {
		return nil, fmt.Errorf("spectrum: block of %d samples exceeds analyzer size %d: %w",
			len(block), a.size, core.ErrInvalidParameter)
	}

	core.Zero(a.frame)
	// Window only the occupied part so zero-padding does not skew the taper.
	n := copy(a.frame, block)
	if n == a.size {
		vecmath.MulBlockInPlace(a.frame, a.win)
	} else {
		window.Apply(window.TypeHann, a.frame[:n], window.WithPeriodic())
	}

	for i, x := range a.frame {
		a.bins[i] = complex(x, 0)
	}
	if err := a.plan.Forward(a.bins, a.bins); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	for k := range a.mags {
		a.re[k] = real(a.bins[k])
		a.im[k] = imag(a.bins[k])
	}
	vecmath.Magnitude(a.mags, a.re, a.im)
	return a.mags, nil
}

// PeakFrequency returns the frequency in Hz of the strongest non-DC bin,
// refined by parabolic interpolation of the log magnitudes. A silent block
// yields 0.
func (a *Analyzer) PeakFrequency(block []float64) (float64, error) {
	mags, err := a.Magnitudes(block)
	if err != nil {
		return 0, err
	}

	peak := 1
	for k := 2; k < len(mags); k++ {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	if mags[peak] == 0 {
		return 0, nil
	}

	offset := 0.0
	if peak > 1 && peak < len(mags)-1 {
		l := math.Log(math.Max(mags[peak-1], logFloor))
		c := math.Log(math.Max(mags[peak], logFloor))
		r := math.Log(math.Max(mags[peak+1], logFloor))
		if den := l - 2*c + r; den != 0 {
			offset = 0.5 * (l - r) / den
		}
	}
	return (float64(peak) + offset) * a.BinHz(), nil
}

// PeakFrequency estimates the dominant frequency of block in one shot.
func PeakFrequency(block []float64, sampleRate float64) (float64, error) {
	size := minAnalyzerSize
	for size < len(block) {
		size <<= 1
	}
	a, err := NewAnalyzer(size, sampleRate)
	if err != nil {
		return 0, err
	}
	return a.PeakFrequency(block)
}
