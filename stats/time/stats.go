// Package time measures time-domain levels of sample blocks.
package time

import "math"

// Level summarises one block.
type Level struct {
	Length int
	Peak   float64 // max |x|
	RMS    float64
	// Hot counts samples outside [-1, 1], which a device will clip.
	Hot int
}

// PeakDB returns the peak in dBFS, -Inf for silence.
func (l Level) PeakDB() float64 { return ampTodB(l.Peak) }

// RMSDB returns the RMS level in dBFS, -Inf for silence.
func (l Level) RMSDB() float64 { return ampTodB(l.RMS) }

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Measure computes the level of a block in a single pass without
// allocating.
func Measure(signal []float64) Level {
	l := Level{Length: len(signal)}
	if len(signal) == 0 {
		return l
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
		a := math.Abs(x)
		if a > l.Peak {
			l.Peak = a
		}
		if a > 1 {
			l.Hot++
		}
	}
	l.RMS = math.Sqrt(sumSq / float64(len(signal)))

	return l
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	return Measure(signal).RMS
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	return Measure(signal).Peak
}

// Meter accumulates block levels over a session.
type Meter struct {
	blocks int
	n      int
	sumSq  float64
	peak   float64
	hot    int
}

// Update adds one measured block.
func (m *Meter) Update(l Level) {
	m.blocks++
	m.n += l.Length
	m.sumSq += l.RMS * l.RMS * float64(l.Length)
	if l.Peak > m.peak {
		m.peak = l.Peak
	}
	m.hot += l.Hot
}

// Blocks returns the number of blocks seen.
func (m *Meter) Blocks() int { return m.blocks }

// Result returns the aggregate level of all samples seen.
func (m *Meter) Result() Level {
	l := Level{Length: m.n, Peak: m.peak, Hot: m.hot}
	if m.n > 0 {
		l.RMS = math.Sqrt(m.sumSq / float64(m.n))
	}
	return l
}

// Reset clears all accumulated data.
func (m *Meter) Reset() {
	*m = Meter{}
}
