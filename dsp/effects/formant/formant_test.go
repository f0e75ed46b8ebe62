package formant

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/internal/testutil"
)

func TestNewShifterValidation(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		ratio float64
	}{
		{name: "zero ratio", n: 1024, ratio: 0},
		{name: "negative ratio", n: 1024, ratio: -1.2},
		{name: "NaN ratio", n: 1024, ratio: math.NaN()},
		{name: "empty block", n: 0, ratio: 1.2},
		{name: "single sample", n: 1, ratio: 1},
		{name: "rounds to one", n: 4, ratio: 0.3},
		{name: "rounds to zero", n: 1024, ratio: 0.0004},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShifter(tt.n, tt.ratio); !errors.Is(err, core.ErrInvalidParameter) {
				t.Fatalf("NewShifter(%d, %v) error = %v, want ErrInvalidParameter", tt.n, tt.ratio, err)
			}
		})
	}
}

func TestIntermediateLengthBoundary(t *testing.T) {
	// round(4*0.4) = 2 is the smallest accepted intermediate length.
	s, err := NewShifter(4, 0.4)
	if err != nil {
		t.Fatalf("NewShifter(4, 0.4) error = %v", err)
	}
	if s.IntermediateLen() != 2 {
		t.Fatalf("IntermediateLen() = %d, want 2", s.IntermediateLen())
	}

	out, err := Shift([]float64{1, 2, 3, 4}, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4", len(out))
	}
	testutil.RequireFinite(t, out)
}

func TestIdentityRatio(t *testing.T) {
	block := testutil.DeterministicNoise(11, 0.9, 1024)
	out, err := Shift(block, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, out, block, 0)
}

func TestUpwardRatioRoundTrips(t *testing.T) {
	for _, n := range []int{1023, 1024} {
		block := testutil.DeterministicNoise(5, 0.9, n)
		out, err := Shift(block, 1.2)
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireSliceNearlyEqual(t, out, block, 1e-9)
	}
}

func TestPreservesLength(t *testing.T) {
	for _, n := range []int{3, 17, 512, 1024, 1500} {
		block := testutil.DeterministicNoise(int64(n), 0.5, n)
		for _, ratio := range []float64{0.7, 1.2, 2.5} {
			out, err := Shift(block, ratio)
			if err != nil {
				t.Fatalf("Shift(len=%d, ratio=%v) error = %v", n, ratio, err)
			}
			if len(out) != n {
				t.Fatalf("Shift(len=%d, ratio=%v) len = %d", n, ratio, len(out))
			}
			testutil.RequireFinite(t, out)
		}
	}
}

func TestDownwardRatioLowPasses(t *testing.T) {
	const n = 1024
	// Periodic tones: bin 10 survives a halving, bin 400 does not.
	low := testutil.DeterministicSine(10, n, 0.5, n)
	high := testutil.DeterministicSine(400, n, 0.5, n)
	mixed := make([]float64, n)
	for i := range mixed {
		mixed[i] = low[i] + high[i]
	}

	out, err := Shift(mixed, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, out, low, 1e-9)
}

func TestProcessInPlaceAndLengthErrors(t *testing.T) {
	s, err := NewShifter(256, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	block := testutil.DeterministicNoise(2, 0.5, 256)

	want := make([]float64, 256)
	if err := s.Process(want, block); err != nil {
		t.Fatal(err)
	}
	buf := append([]float64(nil), block...)
	if err := s.Process(buf, buf); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, buf, want, 0)

	if err := s.Process(make([]float64, 255), block); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("Process(short dst) error = %v, want ErrInvalidParameter", err)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	for _, n := range []int{1024, 1023} {
		s, err := NewShifter(n, 1.2)
		if err != nil {
			t.Fatal(err)
		}
		buf := testutil.DeterministicSine(200, 44100, 0.5, n)
		allocs := testing.AllocsPerRun(20, func() {
			if err := s.Process(buf, buf); err != nil {
				t.Fatal(err)
			}
		})
		if allocs != 0 {
			t.Fatalf("n=%d: allocs per block = %v, want 0", n, allocs)
		}
	}
}
