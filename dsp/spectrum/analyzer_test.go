package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/internal/testutil"
)

func TestPeakFrequency(t *testing.T) {
	tests := []struct {
		name       string
		freq, rate float64
		length     int
		tol        float64
	}{
		{name: "1 kHz at 48 kHz", freq: 1000, rate: 48000, length: 4096, tol: 2},
		{name: "200 Hz block", freq: 200, rate: 44100, length: 1024, tol: 10},
		{name: "300 Hz block", freq: 300, rate: 44100, length: 1024, tol: 10},
		{name: "zero padded", freq: 440, rate: 44100, length: 3000, tol: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := testutil.DeterministicSine(tt.freq, tt.rate, 0.5, tt.length)
			got, err := PeakFrequency(sig, tt.rate)
			if err != nil {
				t.Fatalf("PeakFrequency() error = %v", err)
			}
			if math.Abs(got-tt.freq) > tt.tol {
				t.Fatalf("PeakFrequency() = %v, want %v +/- %v", got, tt.freq, tt.tol)
			}
		})
	}
}

func TestPeakFrequencySilence(t *testing.T) {
	got, err := PeakFrequency(make([]float64, 512), 44100)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("PeakFrequency(silence) = %v, want 0", got)
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	for _, size := range []int{0, 8, 100} {
		if _, err := NewAnalyzer(size, 44100); !errors.Is(err, core.ErrInvalidParameter) {
			t.Fatalf("NewAnalyzer(%d) error = %v, want ErrInvalidParameter", size, err)
		}
	}
	if _, err := NewAnalyzer(1024, 0); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("NewAnalyzer(rate 0) error = %v, want ErrInvalidParameter", err)
	}

	a, err := NewAnalyzer(256, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Magnitudes(make([]float64, 257)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("Magnitudes(too long) error = %v, want ErrInvalidParameter", err)
	}
}

func TestMagnitudesLength(t *testing.T) {
	a, err := NewAnalyzer(512, 48000)
	if err != nil {
		t.Fatal(err)
	}
	mags, err := a.Magnitudes(testutil.DeterministicSine(3000, 48000, 1, 512))
	if err != nil {
		t.Fatal(err)
	}
	if len(mags) != 257 {
		t.Fatalf("len(mags) = %d, want 257", len(mags))
	}
	testutil.RequireFinite(t, mags)
	if a.BinHz() != 93.75 {
		t.Fatalf("BinHz() = %v, want 93.75", a.BinHz())
	}
}
