package formant

import (
	"fmt"
	"math"

	"github.com/cwbudde/voxshift/dsp/core"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Shifter applies the formant round trip to blocks of one fixed length.
// Transforms and spectra are allocated once in NewShifter. It is not safe
// for concurrent use.
type Shifter struct {
	ratio float64
	n     int
	m     int

	fftN *fourier.FFT
	fftM *fourier.FFT

	specN []complex128
	specM []complex128
	mid   []float64
}

// NewShifter returns a shifter for blocks of n samples.
func NewShifter(n int, ratio float64) (*Shifter, error) {
	if !core.IsFinitePositive(ratio) {
		return nil, fmt.Errorf("formant: ratio must be positive and finite: %f: %w", ratio, core.ErrInvalidParameter)
	}
	m := int(math.Round(float64(n) * ratio))
	if m < 2 {
		return nil, fmt.Errorf("formant: intermediate length round(%d*%g) = %d is below 2: %w",
			n, ratio, m, core.ErrInvalidParameter)
	}
	return &Shifter{
		ratio: ratio,
		n:     n,
		m:     m,
		fftN:  fourier.NewFFT(n),
		fftM:  fourier.NewFFT(m),
		specN: make([]complex128, n/2+1),
		specM: make([]complex128, m/2+1),
		mid:   make([]float64, m),
	}, nil
}

// Ratio returns the formant ratio.
func (s *Shifter) Ratio() float64 { return s.ratio }

// Len returns the block length the shifter accepts.
func (s *Shifter) Len() int { return s.n }

// IntermediateLen returns round(Len()*Ratio()).
func (s *Shifter) IntermediateLen() int { return s.m }

// Process writes the formant-shifted src into dst. Both must hold Len()
// samples; they may alias.
func (s *Shifter) Process(dst, src []float64) error {
	if len(src) != s.n || len(dst) != s.n {
		return fmt.Errorf("formant: dst/src hold %d/%d samples, want %d: %w",
			len(dst), len(src), s.n, core.ErrInvalidParameter)
	}
	if s.m == s.n {
		copy(dst, src)
		return nil
	}

	s.fftN.Coefficients(s.specN, src)
	resampleSpectrum(s.specM, s.specN, s.n, s.m)
	s.fftM.Sequence(s.mid, s.specM)
	scale(s.mid, 1/float64(s.n))

	s.fftM.Coefficients(s.specM, s.mid)
	resampleSpectrum(s.specN, s.specM, s.m, s.n)
	s.fftN.Sequence(dst, s.specN)
	scale(dst, 1/float64(s.m))
	return nil
}

// Shift applies the formant round trip to block and returns a new block of
// the same length.
func Shift(block []float64, ratio float64) ([]float64, error) {
	s, err := NewShifter(len(block), ratio)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(block))
	if err := s.Process(out, block); err != nil {
		return nil, err
	}
	return out, nil
}

// resampleSpectrum maps the half spectrum x of a length-nx sequence onto the
// half spectrum y of a length-ny sequence. Inverting y without
// normalisation and dividing by nx yields the resampled sequence.
func resampleSpectrum(y, x []complex128, nx, ny int) {
	clear(y)
	n := min(nx, ny)
	copy(y[:n/2+1], x[:n/2+1])

	if n%2 == 0 {
		switch {
		case ny < nx:
			y[n/2] *= 2
		case nx < ny:
			y[n/2] *= 0.5
		}
	}

	y[0] = complex(real(y[0]), 0)
	if ny%2 == 0 {
		y[ny/2] = complex(real(y[ny/2]), 0)
	}
}

func scale(buf []float64, g float64) {
	for i := range buf {
		buf[i] *= g
	}
}
