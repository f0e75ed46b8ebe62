package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/window"
)

// peakTrackBins is the largest bin distance at which a peak is treated as
// the continuation of a peak in the previous frame.
const peakTrackBins = 2

// vocoder holds the STFT state shared by both shifters. Every buffer is
// sized once in newVocoder.
type vocoder struct {
	size int
	half int

	plan  *algofft.Plan[complex128]
	win   []float64
	omega []float64

	prevPhase []float64
	sumPhase  []float64

	windowed  []float64
	spectrum  []complex128
	timeFrame []complex128
	re, im    []float64

	magnitudes []float64
	instFreqs  []float64
	peakBins   []int

	// Peaks of the previous frame and their synthesis phases.
	peakPhase     []float64
	prevPeaks     []int
	prevPeakPhase []float64

	primed bool
}

func newVocoder(o options) (*vocoder, error) {
	if o.frameSize < minFrameSize || !core.IsPowerOf2(o.frameSize) {
		return nil, fmt.Errorf("pitch: frame size must be power-of-two and >= %d: %d: %w",
			minFrameSize, o.frameSize, core.ErrInvalidParameter)
	}
	if o.oversampling < minOversampling || o.frameSize%o.oversampling != 0 {
		return nil, fmt.Errorf("pitch: oversampling must be >= %d and divide frame size %d: %d: %w",
			minOversampling, o.frameSize, o.oversampling, core.ErrInvalidParameter)
	}

	plan, err := algofft.NewPlan64(o.frameSize)
	if err != nil {
		return nil, fmt.Errorf("pitch: failed to create FFT plan: %w", err)
	}

	n := o.frameSize
	bins := n/2 + 1
	v := &vocoder{
		size:          n,
		half:          n / 2,
		plan:          plan,
		win:           window.Generate(o.windowType, n, window.WithPeriodic()),
		omega:         make([]float64, bins),
		prevPhase:     make([]float64, bins),
		sumPhase:      make([]float64, bins),
		windowed:      make([]float64, n),
		spectrum:      make([]complex128, n),
		timeFrame:     make([]complex128, n),
		re:            make([]float64, bins),
		im:            make([]float64, bins),
		magnitudes:    make([]float64, bins),
		instFreqs:     make([]float64, bins),
		peakBins:      make([]int, 0, bins),
		peakPhase:     make([]float64, 0, bins),
		prevPeaks:     make([]int, 0, bins),
		prevPeakPhase: make([]float64, 0, bins),
	}
	for k := range bins {
		v.omega[k] = 2 * math.Pi * float64(k) / float64(n)
	}
	return v, nil
}

func (v *vocoder) reset() {
	core.Zero(v.prevPhase)
	core.Zero(v.sumPhase)
	v.prevPeaks = v.prevPeaks[:0]
	v.prevPeakPhase = v.prevPeakPhase[:0]
	v.primed = false
}

// analyze windows frame, transforms it and estimates per-bin magnitude and
// instantaneous frequency (radians per sample) for an analysis hop.
func (v *vocoder) analyze(frame []float64, hop float64) error {
	if err := window.ApplyCoefficients(v.windowed, frame, v.win); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	for i, x := range v.windowed {
		v.spectrum[i] = complex(x, 0)
	}
	if err := v.plan.Forward(v.spectrum, v.spectrum); err != nil {
		return fmt.Errorf("pitch: forward FFT failed: %w", err)
	}

	for k := 0; k <= v.half; k++ {
		v.re[k] = real(v.spectrum[k])
		v.im[k] = imag(v.spectrum[k])
	}
	vecmath.Magnitude(v.magnitudes, v.re, v.im)

	for k := 0; k <= v.half; k++ {
		phase := math.Atan2(v.im[k], v.re[k])
		delta := wrapPhase(phase - v.prevPhase[k] - v.omega[k]*hop)
		v.instFreqs[k] = v.omega[k] + delta/hop
		v.prevPhase[k] = phase
	}
	return nil
}

func (v *vocoder) findPeaks() {
	v.peakBins = v.peakBins[:0]
	for k := 1; k < v.half; k++ {
		if v.magnitudes[k] >= v.magnitudes[k-1] && v.magnitudes[k] > v.magnitudes[k+1] {
			v.peakBins = append(v.peakBins, k)
		}
	}
}

// nearestPeak advances idx while the next entry of peaks is closer to k.
func nearestPeak(peaks []int, idx, k int) int {
	for idx+1 < len(peaks) && absInt(peaks[idx+1]-k) < absInt(peaks[idx]-k) {
		idx++
	}
	return idx
}

// shiftPeaks moves the region around every spectral peak p rigidly to
// round(p*ratio). A peak's synthesis phase advances by its scaled
// instantaneous frequency when it continues a peak of the previous frame;
// bins in its region keep their analysis phase offset to the peak.
func (v *vocoder) shiftPeaks(ratio, hop float64) {
	v.findPeaks()
	clear(v.spectrum[:v.half+1])

	v.peakPhase = v.peakPhase[:len(v.peakBins)]
	prev := 0
	for i, p := range v.peakBins {
		if len(v.prevPeaks) == 0 {
			v.peakPhase[i] = v.prevPhase[p]
			continue
		}
		prev = nearestPeak(v.prevPeaks, prev, p)
		if absInt(v.prevPeaks[prev]-p) > peakTrackBins {
			v.peakPhase[i] = v.prevPhase[p]
			continue
		}
		v.peakPhase[i] = wrapPhase(v.prevPeakPhase[prev] + v.instFreqs[p]*ratio*hop)
	}

	if len(v.peakBins) > 0 {
		idx := 0
		for k := 0; k <= v.half; k++ {
			idx = nearestPeak(v.peakBins, idx, k)
			p := v.peakBins[idx]
			l := k + int(math.Round(float64(p)*ratio)) - p
			if l < 0 || l > v.half {
				continue
			}
			ph := v.peakPhase[idx] + v.prevPhase[k] - v.prevPhase[p]
			v.spectrum[l] += complex(v.magnitudes[k]*math.Cos(ph), v.magnitudes[k]*math.Sin(ph))
		}
	}

	v.prevPeaks = append(v.prevPeaks[:0], v.peakBins...)
	v.prevPeakPhase = append(v.prevPeakPhase[:0], v.peakPhase...)
}

// lockPhases advances synthesis phases by hop with identity phase locking
// (Laroche & Dolson 1999): peaks advance by their own frequency, every other
// bin keeps its analysis phase offset to the nearest peak. The first frame
// after a reset is synthesised with its analysis phases.
func (v *vocoder) lockPhases(hop float64) {
	v.findPeaks()

	switch {
	case !v.primed:
		copy(v.sumPhase, v.prevPhase)
		v.primed = true
	case len(v.peakBins) == 0:
		for k := 0; k <= v.half; k++ {
			v.sumPhase[k] += v.instFreqs[k] * hop
		}
	default:
		for _, pk := range v.peakBins {
			v.sumPhase[pk] += v.instFreqs[pk] * hop
		}

		idx := 0
		for k := 0; k <= v.half; k++ {
			idx = nearestPeak(v.peakBins, idx, k)
			if pk := v.peakBins[idx]; k != pk {
				v.sumPhase[k] = v.sumPhase[pk] + (v.prevPhase[k] - v.prevPhase[pk])
			}
		}
	}

	for k := 0; k <= v.half; k++ {
		v.spectrum[k] = complex(
			v.magnitudes[k]*math.Cos(v.sumPhase[k]),
			v.magnitudes[k]*math.Sin(v.sumPhase[k]),
		)
	}
}

// synthesize mirrors the half spectrum, inverts it and writes the
// synthesis-windowed frame into out.
func (v *vocoder) synthesize(out []float64) error {
	v.spectrum[0] = complex(real(v.spectrum[0]), 0)
	v.spectrum[v.half] = complex(real(v.spectrum[v.half]), 0)
	for k := 1; k < v.half; k++ {
		c := v.spectrum[k]
		v.spectrum[v.size-k] = complex(real(c), -imag(c))
	}

	if err := v.plan.Inverse(v.timeFrame, v.spectrum); err != nil {
		return fmt.Errorf("pitch: inverse FFT failed: %w", err)
	}

	for i, c := range v.timeFrame {
		out[i] = real(c)
	}
	vecmath.MulBlockInPlace(out, v.win)
	return nil
}
