package window

import (
	"math"
	"testing"
)

func TestGenerateShapes(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman} {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 64)
			if len(w) != 64 {
				t.Fatalf("len=%d, want 64", len(w))
			}
			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("coefficient[%d] invalid: %v", i, v)
				}
				if v < -1e-12 || v > 1+1e-12 {
					t.Fatalf("coefficient[%d] out of range: %v", i, v)
				}
				if mirror := w[len(w)-1-i]; math.Abs(mirror-v) > 1e-12 {
					t.Fatalf("symmetric window not symmetric at %d: %v vs %v", i, v, mirror)
				}
			}
		})
	}
}

func TestGenerateEmpty(t *testing.T) {
	if w := Generate(TypeHann, 0); w != nil {
		t.Fatalf("Generate(0) = %v, want nil", w)
	}
}

func TestPeriodicHannStartsAtZero(t *testing.T) {
	w := Generate(TypeHann, 8, WithPeriodic())
	if w[0] != 0 {
		t.Fatalf("w[0] = %v, want 0", w[0])
	}
	// Periodic form peaks exactly at n = N/2.
	if math.Abs(w[4]-1) > 1e-12 {
		t.Fatalf("w[4] = %v, want 1", w[4])
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "hann", want: TypeHann},
		{in: " Hamming ", want: TypeHamming},
		{in: "BLACKMAN", want: TypeBlackman},
		{in: "rectangular", want: TypeRectangular},
		{in: "kaiser", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyCoefficients(t *testing.T) {
	dst := make([]float64, 3)
	if err := ApplyCoefficients(dst, []float64{1, 2, 3}, []float64{0.5, 0.5, 2}); err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, 1, 6}
	for i := range want {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
	if err := ApplyCoefficients(dst, []float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestOverlapAddGainHann(t *testing.T) {
	const size = 1024

	w := Generate(TypeHann, size, WithPeriodic())
	for _, overlap := range []int{4, 8} {
		hop := size / overlap
		gain, err := OverlapAddGain(w, hop)
		if err != nil {
			t.Fatal(err)
		}
		// Squared periodic Hann sums to 3/8 per sample for hop <= N/4.
		want := 0.375 * float64(overlap)
		if math.Abs(gain-want) > 1e-9 {
			t.Fatalf("overlap %d: gain = %v, want %v", overlap, gain, want)
		}

		// Verify against an explicit overlap-add sum at an interior point.
		n := size / 2
		sum := 0.0
		for k := -overlap; k <= overlap; k++ {
			idx := n + k*hop
			if idx >= 0 && idx < size {
				sum += w[idx] * w[idx]
			}
		}
		if math.Abs(sum-gain) > 1e-9 {
			t.Fatalf("overlap %d: explicit sum = %v, gain = %v", overlap, sum, gain)
		}
	}
}

func TestOverlapAddGainValidation(t *testing.T) {
	if _, err := OverlapAddGain(nil, 1); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
	if _, err := OverlapAddGain([]float64{1, 1}, 0); err == nil {
		t.Fatal("expected error for zero hop")
	}
	if _, err := OverlapAddGain([]float64{0, 0}, 1); err == nil {
		t.Fatal("expected error for zero gain")
	}
}
