package interp

import "math"

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// SampleHermite evaluates input at fractional position pos.
// Neighbors outside the slice are clamped to the edge samples.
func SampleHermite(input []float64, pos float64) float64 {
	if len(input) == 0 {
		return 0
	}
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	return Hermite4(frac,
		sampleClamp(input, idx-1),
		sampleClamp(input, idx),
		sampleClamp(input, idx+1),
		sampleClamp(input, idx+2),
	)
}

// ResampleHermiteInto reads input at positions 0, step, 2*step, ... into
// dst. A step above 1 raises pitch, below 1 lowers it.
func ResampleHermiteInto(dst, input []float64, step float64) {
	if len(input) == 0 {
		clear(dst)
		return
	}
	for i := range dst {
		dst[i] = SampleHermite(input, float64(i)*step)
	}
}

func sampleClamp(x []float64, idx int) float64 {
	if idx < 0 {
		return x[0]
	}
	if idx >= len(x) {
		return x[len(x)-1]
	}
	return x[idx]
}
