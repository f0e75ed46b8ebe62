package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/interp"
)

const normFloor = 1e-12

// BlockShifter shifts every block independently.
//
// The block is time-stretched by the pitch ratio with an STFT phase vocoder
// using identity phase locking, then read back at the ratio step with
// Hermite interpolation so the output keeps the input length. Phase state
// is reset per block, so there is no latency and no history.
type BlockShifter struct {
	sampleRate float64
	ratio      float64
	blockSize  int

	frameSize    int
	analysisHop  int
	synthesisHop int

	voc       *vocoder
	frame     []float64
	synth     []float64
	stretched []float64
	norm      []float64
}

// NewBlockShifter returns a per-block shifter accepting blocks of up to
// blockSize samples. The default frame is 256 samples with an oversampling
// of 4.
func NewBlockShifter(sampleRate, ratio float64, blockSize int, opts ...Option) (*BlockShifter, error) {
	if err := validateRatio(sampleRate, ratio); err != nil {
		return nil, err
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("pitch: block size must be >= 0: %d: %w", blockSize, core.ErrInvalidParameter)
	}
	o := newOptions(defaultBlockFrameSize, opts)

	voc, err := newVocoder(o)
	if err != nil {
		return nil, err
	}

	ha := o.frameSize / o.oversampling
	hs := max(int(math.Round(float64(ha)*ratio)), 1)

	frames := 1
	if blockSize > 0 {
		frames = 1 + (blockSize-1)/ha
	}
	stretchedLen := (frames-1)*hs + o.frameSize

	return &BlockShifter{
		sampleRate:   sampleRate,
		ratio:        ratio,
		blockSize:    blockSize,
		frameSize:    o.frameSize,
		analysisHop:  ha,
		synthesisHop: hs,
		voc:          voc,
		frame:        make([]float64, o.frameSize),
		synth:        make([]float64, o.frameSize),
		stretched:    make([]float64, stretchedLen),
		norm:         make([]float64, stretchedLen),
	}, nil
}

// Ratio returns the requested pitch ratio.
func (b *BlockShifter) Ratio() float64 { return b.ratio }

// EffectiveRatio returns the realised ratio, quantised to
// synthesisHop/analysisHop.
func (b *BlockShifter) EffectiveRatio() float64 {
	if isIdentity(b.ratio) {
		return 1
	}
	return float64(b.synthesisHop) / float64(b.analysisHop)
}

// Latency is always zero.
func (b *BlockShifter) Latency() int { return 0 }

// Reset is a no-op; no state survives a block.
func (b *BlockShifter) Reset() {}

// Process shifts src into dst. dst and src may alias.
func (b *BlockShifter) Process(dst, src []float64) error {
	if err := checkLengths(dst, src); err != nil {
		return err
	}
	if len(src) > b.blockSize {
		return fmt.Errorf("pitch: block of %d samples exceeds configured size %d: %w",
			len(src), b.blockSize, core.ErrInvalidParameter)
	}
	if len(src) == 0 {
		return nil
	}
	if isIdentity(b.ratio) {
		copy(dst, src)
		return nil
	}

	n, err := b.stretch(src)
	if err != nil {
		return err
	}
	interp.ResampleHermiteInto(dst, b.stretched[:n], b.EffectiveRatio())
	return nil
}

// stretch fills b.stretched with the time-stretched block and returns its
// length.
func (b *BlockShifter) stretch(src []float64) (int, error) {
	b.voc.reset()

	frames := 1 + (len(src)-1)/b.analysisHop
	n := (frames-1)*b.synthesisHop + b.frameSize
	out := b.stretched[:n]
	norm := b.norm[:n]
	core.Zero(out)
	core.Zero(norm)

	ha := float64(b.analysisHop)
	hs := float64(b.synthesisHop)
	for f := range frames {
		inPos := f * b.analysisHop
		outPos := f * b.synthesisHop

		for i := range b.frame {
			x := 0.0
			if idx := inPos + i; idx < len(src) {
				x = src[idx]
			}
			b.frame[i] = x
		}

		if err := b.voc.analyze(b.frame, ha); err != nil {
			return 0, err
		}
		b.voc.lockPhases(hs)
		if err := b.voc.synthesize(b.synth); err != nil {
			return 0, err
		}

		for i, v := range b.synth {
			w := b.voc.win[i]
			out[outPos+i] += v
			norm[outPos+i] += w * w
		}
	}

	for i := range out {
		if norm[i] > normFloor {
			out[i] /= norm[i]
		}
	}
	return n, nil
}
