// Package window generates the tapering windows used for short-time
// spectral analysis and overlap-add resynthesis.
package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Cosine-sum coefficients a0 - a1*cos(2πx) + a2*cos(4πx), signs folded in.
var (
	hannCoeffs     = []float64{0.5, -0.5}
	hammingCoeffs  = []float64{0.54, -0.46}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

var typeNames = map[Type]string{
	TypeRectangular: "rectangular",
	TypeHann:        "hann",
	TypeHamming:     "hamming",
	TypeBlackman:    "blackman",
}

// String returns the lower-case window name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// ParseType resolves a window name such as "hann" (case-insensitive).
func ParseType(name string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == key {
			return t, nil
		}
	}
	return TypeRectangular, fmt.Errorf("%w: %q", errUnknownType, name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}
	out := make([]float64, length)
	GenerateInto(out, t, opts...)
	return out
}

// GenerateInto fills dst with window coefficients of length len(dst).
func GenerateInto(dst []float64, t Type, opts ...Option) {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	for i := range dst {
		dst[i] = evalWindow(t, samplePosition(i, len(dst), cfg.periodic))
	}
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}
	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// ApplyCoefficients writes samples*coeffs into dst without allocating.
func ApplyCoefficients(dst, samples, coeffs []float64) error {
	if len(samples) != len(coeffs) || len(dst) != len(samples) {
		return errMismatchedLength
	}
	vecmath.MulBlock(dst, samples, coeffs)
	return nil
}

// OverlapAddGain returns the mean summed squared window value seen by one
// output sample when frames windowed twice (analysis and synthesis) are
// overlap-added at the given hop. Dividing by it restores unity gain.
func OverlapAddGain(coeffs []float64, hop int) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmptyCoeffs
	}
	if hop <= 0 || hop > len(coeffs) {
		return 0, fmt.Errorf("window hop must be in [1, %d]: %d", len(coeffs), hop)
	}
	sum := 0.0
	for _, c := range coeffs {
		sum += c * c
	}
	gain := sum / float64(hop)
	if gain == 0 {
		return 0, errZeroGain
	}
	return gain, nil
}

func evalWindow(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
