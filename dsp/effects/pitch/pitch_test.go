package pitch

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/spectrum"
	"github.com/cwbudde/voxshift/internal/testutil"
)

const testSampleRate = 44100.0

func TestConstructorsRejectInvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		ratio float64
		opts  []Option
	}{
		{name: "zero ratio", rate: testSampleRate, ratio: 0},
		{name: "negative ratio", rate: testSampleRate, ratio: -1.5},
		{name: "NaN ratio", rate: testSampleRate, ratio: math.NaN()},
		{name: "+Inf ratio", rate: testSampleRate, ratio: math.Inf(1)},
		{name: "zero sample rate", rate: 0, ratio: 1.5},
		{name: "frame not power of two", rate: testSampleRate, ratio: 1.5, opts: []Option{WithFrameSize(1000)}},
		{name: "frame too small", rate: testSampleRate, ratio: 1.5, opts: []Option{WithFrameSize(32)}},
		{name: "oversampling too low", rate: testSampleRate, ratio: 1.5, opts: []Option{WithOversampling(2)}},
		{name: "oversampling not a divisor", rate: testSampleRate, ratio: 1.5, opts: []Option{WithOversampling(6)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStreamShifter(tt.rate, tt.ratio, tt.opts...); !errors.Is(err, core.ErrInvalidParameter) {
				t.Fatalf("NewStreamShifter() error = %v, want ErrInvalidParameter", err)
			}
			if _, err := NewBlockShifter(tt.rate, tt.ratio, 1024, tt.opts...); !errors.Is(err, core.ErrInvalidParameter) {
				t.Fatalf("NewBlockShifter() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestStreamShifterHistoryTooSmall(t *testing.T) {
	_, err := NewStreamShifter(testSampleRate, 1.5, WithFrameSize(1024), WithHistorySize(512))
	if !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("NewStreamShifter() error = %v, want ErrInvalidParameter", err)
	}

	s, err := NewStreamShifter(testSampleRate, 1.5, WithFrameSize(1024), WithHistorySize(4096))
	if err != nil {
		t.Fatal(err)
	}
	if s.HistoryCap() != 4096 {
		t.Fatalf("HistoryCap() = %d, want 4096", s.HistoryCap())
	}
}

func TestShiftRejectsNonPositiveRatio(t *testing.T) {
	block := testutil.DeterministicSine(200, testSampleRate, 0.5, 1024)
	for _, ratio := range []float64{0, -1} {
		if _, err := Shift(block, ratio, testSampleRate); !errors.Is(err, core.ErrInvalidParameter) {
			t.Fatalf("Shift(ratio=%v) error = %v, want ErrInvalidParameter", ratio, err)
		}
	}
}

func TestIdentityRatioIsExact(t *testing.T) {
	block := testutil.DeterministicNoise(7, 0.8, 1024)

	out, err := Shift(block, 1, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, out, block, 0)

	s, err := NewStreamShifter(testSampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Latency() != 0 {
		t.Fatalf("Latency() = %d, want 0 at identity", s.Latency())
	}
	dst := make([]float64, len(block))
	for range 3 {
		if err := s.Process(dst, block); err != nil {
			t.Fatal(err)
		}
		testutil.RequireSliceNearlyEqual(t, dst, block, 0)
	}
}

func TestShiftPreservesLength(t *testing.T) {
	for _, n := range []int{0, 1, 100, 1024, 3000} {
		block := testutil.DeterministicSine(220, testSampleRate, 0.5, n)
		for _, ratio := range []float64{0.5, 1.2, 1.5, 2} {
			out, err := Shift(block, ratio, testSampleRate)
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

func TestBlockShifterRaisesTone(t *testing.T) {
	block := testutil.DeterministicSine(200, testSampleRate, 0.5, 1024)

	out, err := Shift(block, 1.5, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	requireDominant(t, out, 300, 200)
}

func TestStreamShifterRaisesTone(t *testing.T) {
	const blockSize = 1024

	s, err := NewStreamShifter(testSampleRate, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if s.FrameSize() != 2048 || s.Hop() != 512 {
		t.Fatalf("FrameSize()/Hop() = %d/%d, want 2048/512", s.FrameSize(), s.Hop())
	}
	if s.Latency() != 2047 {
		t.Fatalf("Latency() = %d, want 2047", s.Latency())
	}

	signal := testutil.DeterministicSine(200, testSampleRate, 0.5, 8*blockSize)
	out := make([]float64, blockSize)
	for start := 0; start < len(signal); start += blockSize {
		if err := s.Process(out, signal[start:start+blockSize]); err != nil {
			t.Fatal(err)
		}
	}
	testutil.RequireFinite(t, out)
	requireDominant(t, out, 300, 200)
}

func TestStreamShifterOutputIndependentOfBlocking(t *testing.T) {
	signal := testutil.DeterministicNoise(3, 0.5, 3000)

	whole, err := NewStreamShifter(testSampleRate, 0.8, WithFrameSize(256))
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(signal))
	if err := whole.Process(want, signal); err != nil {
		t.Fatal(err)
	}

	chunked, err := NewStreamShifter(testSampleRate, 0.8, WithFrameSize(256))
	if err != nil {
		t.Fatal(err)
	}
	got := make([]float64, len(signal))
	for start, size := 0, 1; start < len(signal); size = size*2 + 1 {
		end := min(start+size, len(signal))
		if err := chunked.Process(got[start:end], signal[start:end]); err != nil {
			t.Fatal(err)
		}
		start = end
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 0)
}

func TestStreamShifterStartsSilent(t *testing.T) {
	s, err := NewStreamShifter(testSampleRate, 1.5, WithFrameSize(256))
	if err != nil {
		t.Fatal(err)
	}
	src := testutil.DC(0.5, s.Hop()-1)
	dst := make([]float64, len(src))
	if err := s.Process(dst, src); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, dst, make([]float64, len(src)), 0)
}

func TestStreamShifterReset(t *testing.T) {
	signal := testutil.DeterministicSine(440, testSampleRate, 0.5, 2048)

	s, err := NewStreamShifter(testSampleRate, 1.25, WithFrameSize(512))
	if err != nil {
		t.Fatal(err)
	}
	first := make([]float64, len(signal))
	if err := s.Process(first, signal); err != nil {
		t.Fatal(err)
	}

	s.Reset()
	second := make([]float64, len(signal))
	if err := s.Process(second, signal); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, second, first, 0)
}

func TestProcessInPlace(t *testing.T) {
	signal := testutil.DeterministicSine(330, testSampleRate, 0.5, 1024)

	for _, mode := range []Mode{ModeStream, ModeBlock} {
		t.Run(string(mode), func(t *testing.T) {
			a, err := New(mode, testSampleRate, 1.5, len(signal), WithFrameSize(256))
			if err != nil {
				t.Fatal(err)
			}
			b, err := New(mode, testSampleRate, 1.5, len(signal), WithFrameSize(256))
			if err != nil {
				t.Fatal(err)
			}

			want := make([]float64, len(signal))
			if err := a.Process(want, signal); err != nil {
				t.Fatal(err)
			}
			buf := append([]float64(nil), signal...)
			if err := b.Process(buf, buf); err != nil {
				t.Fatal(err)
			}
			testutil.RequireSliceNearlyEqual(t, buf, want, 0)
		})
	}
}

func TestProcessLengthErrors(t *testing.T) {
	b, err := NewBlockShifter(testSampleRate, 1.5, 512)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Process(make([]float64, 1024), make([]float64, 1024)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("oversized block error = %v, want ErrInvalidParameter", err)
	}
	if err := b.Process(make([]float64, 10), make([]float64, 11)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("mismatched lengths error = %v, want ErrInvalidParameter", err)
	}

	s, err := NewStreamShifter(testSampleRate, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Process(make([]float64, 10), make([]float64, 11)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("mismatched lengths error = %v, want ErrInvalidParameter", err)
	}
}

func TestNewUnknownMode(t *testing.T) {
	if _, err := New("granular", testSampleRate, 1.5, 1024); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("New(granular) error = %v, want ErrInvalidParameter", err)
	}
}

func TestBlockShifterEffectiveRatio(t *testing.T) {
	b, err := NewBlockShifter(testSampleRate, 1.5, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.EffectiveRatio(); got != 1.5 {
		t.Fatalf("EffectiveRatio() = %v, want 1.5", got)
	}
	if b.Latency() != 0 {
		t.Fatalf("Latency() = %d, want 0", b.Latency())
	}
}

func TestSemitoneConversions(t *testing.T) {
	tests := []struct {
		ratio, semitones float64
	}{
		{ratio: 1, semitones: 0},
		{ratio: 2, semitones: 12},
		{ratio: 0.5, semitones: -12},
	}
	for _, tt := range tests {
		if got := Semitones(tt.ratio); math.Abs(got-tt.semitones) > 1e-12 {
			t.Fatalf("Semitones(%v) = %v, want %v", tt.ratio, got, tt.semitones)
		}
		if got := Ratio(tt.semitones); math.Abs(got-tt.ratio) > 1e-12 {
			t.Fatalf("Ratio(%v) = %v, want %v", tt.semitones, got, tt.ratio)
		}
	}
	// A ratio of 1.5 is a perfect fifth, just over 7 semitones.
	if got := Semitones(1.5); math.Abs(got-7.02) > 0.01 {
		t.Fatalf("Semitones(1.5) = %v, want ~7.02", got)
	}
}

// requireDominant checks that block is dominated by wantHz rather than
// awayHz.
func requireDominant(t *testing.T, block []float64, wantHz, awayHz float64) {
	t.Helper()

	peak, err := spectrum.PeakFrequency(block, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(peak-wantHz) > 30 {
		t.Fatalf("dominant frequency = %.1f Hz, want %.1f Hz", peak, wantHz)
	}

	on, err := spectrum.AnalyzeBlock(block, wantHz, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	off, err := spectrum.AnalyzeBlock(block, awayHz, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if on < 4*off {
		t.Fatalf("power at %.0f Hz (%g) does not dominate %.0f Hz (%g)", wantHz, on, awayHz, off)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	stream, err := NewStreamShifter(testSampleRate, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	block, err := NewBlockShifter(testSampleRate, 1.5, 1024)
	if err != nil {
		t.Fatal(err)
	}

	src := testutil.DeterministicSine(200, testSampleRate, 0.5, 1024)
	dst := make([]float64, len(src))
	for _, s := range []Shifter{stream, block} {
		allocs := testing.AllocsPerRun(20, func() {
			if err := s.Process(dst, src); err != nil {
				t.Fatal(err)
			}
		})
		if allocs != 0 {
			t.Fatalf("%T: allocs per block = %v, want 0", s, allocs)
		}
	}
}

func TestStreamShifterChunkingInvariant(t *testing.T) {
	src := testutil.DeterministicSine(220, testSampleRate, 0.5, 4096)

	whole, err := NewStreamShifter(testSampleRate, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(src))
	if err := whole.Process(want, src); err != nil {
		t.Fatal(err)
	}

	chunked, err := NewStreamShifter(testSampleRate, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	got := append([]float64(nil), src...)
	for i, sizes := 0, []int{1, 511, 512, 7, 1000}; i < len(got); {
		n := min(sizes[0], len(got)-i)
		sizes = append(sizes[1:], sizes[0])
		if err := chunked.Process(got[i:i+n], got[i:i+n]); err != nil {
			t.Fatal(err)
		}
		i += n
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}
