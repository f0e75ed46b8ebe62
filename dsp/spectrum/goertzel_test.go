package spectrum

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/voxshift/internal/testutil"
)

func TestGoertzelMatchesDFT(t *testing.T) {
	sampleRate := 48000.0
	freq0 := 1000.0
	sig := testutil.DeterministicSine(freq0, sampleRate, 1.0, 1024)

	g, err := NewGoertzel(freq0, sampleRate)
	if err != nil {
		t.Fatalf("NewGoertzel: %v", err)
	}
	g.ProcessBlock(sig)
	pwr := g.Power()

	var dft complex128
	for n, x := range sig {
		angle := -2 * math.Pi * freq0 / sampleRate * float64(n)
		dft += complex(x, 0) * cmplx.Exp(complex(0, angle))
	}
	want := real(dft)*real(dft) + imag(dft)*imag(dft)

	if math.Abs(pwr-want) > 1e-7*want {
		t.Fatalf("Power() = %v, want %v", pwr, want)
	}

	g.Reset()
	if g.Power() != 0 {
		t.Fatalf("Power() after Reset = %v, want 0", g.Power())
	}
}

func TestGoertzelSelectivity(t *testing.T) {
	sig := testutil.DeterministicSine(300, 44100, 1, 4096)

	on, err := AnalyzeBlock(sig, 300, 44100)
	if err != nil {
		t.Fatal(err)
	}
	off, err := AnalyzeBlock(sig, 200, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if on < 100*off {
		t.Fatalf("on-frequency power %v not well above off-frequency %v", on, off)
	}
}

func TestNewGoertzelValidation(t *testing.T) {
	tests := []struct {
		name       string
		freq, rate float64
	}{
		{name: "zero rate", freq: 100, rate: 0},
		{name: "NaN rate", freq: 100, rate: math.NaN()},
		{name: "negative freq", freq: -1, rate: 48000},
		{name: "above nyquist", freq: 24001, rate: 48000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGoertzel(tt.freq, tt.rate); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
