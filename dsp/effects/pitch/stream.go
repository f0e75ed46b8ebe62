package pitch

import (
	"fmt"

	"github.com/cwbudde/voxshift/dsp/buffer"
	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/window"
)

// StreamShifter is a streaming phase-vocoder pitch shifter.
//
// Input samples are appended to a history ring. Every hop (frame /
// oversampling samples) the latest frame is analysed, the region around
// each spectral peak is moved to the scaled peak frequency with its phases
// locked to the peak, and the resynthesised frame is overlap-added into an
// accumulator, from which one hop of finished output is released. The
// output is therefore delayed by Latency() samples, independent of the
// caller's block size.
type StreamShifter struct {
	sampleRate float64
	ratio      float64

	frameSize int
	hop       int

	voc     *vocoder
	history *buffer.Ring
	ola     *buffer.OverlapAdd

	frame  []float64
	synth  []float64
	outHop []float64
	scale  float64

	pending int
	readPos int
}

// NewStreamShifter returns a streaming shifter. The default frame is 2048
// samples with an oversampling of 4.
func NewStreamShifter(sampleRate, ratio float64, opts ...Option) (*StreamShifter, error) {
	if err := validateRatio(sampleRate, ratio); err != nil {
		return nil, err
	}
	o := newOptions(defaultStreamFrameSize, opts)

	voc, err := newVocoder(o)
	if err != nil {
		return nil, err
	}
	if o.historySize < o.frameSize {
		return nil, fmt.Errorf("pitch: history capacity %d is shorter than frame size %d: %w",
			o.historySize, o.frameSize, core.ErrInvalidParameter)
	}
	history, err := buffer.NewRing(o.historySize)
	if err != nil {
		return nil, err
	}
	ola, err := buffer.NewOverlapAdd(o.frameSize)
	if err != nil {
		return nil, err
	}

	hop := o.frameSize / o.oversampling
	gain, err := window.OverlapAddGain(voc.win, hop)
	if err != nil {
		return nil, fmt.Errorf("pitch: %w", err)
	}

	return &StreamShifter{
		sampleRate: sampleRate,
		ratio:      ratio,
		frameSize:  o.frameSize,
		hop:        hop,
		voc:        voc,
		history:    history,
		ola:        ola,
		frame:      make([]float64, o.frameSize),
		synth:      make([]float64, o.frameSize),
		outHop:     make([]float64, hop),
		scale:      1 / gain,
	}, nil
}

// Ratio returns the pitch ratio.
func (s *StreamShifter) Ratio() float64 { return s.ratio }

// SampleRate returns the sample rate in Hz.
func (s *StreamShifter) SampleRate() float64 { return s.sampleRate }

// FrameSize returns the analysis frame size.
func (s *StreamShifter) FrameSize() int { return s.frameSize }

// Hop returns the analysis and synthesis hop in samples.
func (s *StreamShifter) Hop() int { return s.hop }

// HistoryCap returns the capacity of the input history ring.
func (s *StreamShifter) HistoryCap() int { return s.history.Cap() }

// Latency returns the output delay in samples. The identity ratio is not
// delayed.
func (s *StreamShifter) Latency() int {
	if isIdentity(s.ratio) {
		return 0
	}
	return s.frameSize - 1
}

// Reset clears history, accumulator and phase state.
func (s *StreamShifter) Reset() {
	s.voc.reset()
	s.history.Reset()
	s.ola.Reset()
	core.Zero(s.outHop)
	s.pending = 0
	s.readPos = 0
}

// Process shifts src into dst. dst and src may alias.
func (s *StreamShifter) Process(dst, src []float64) error {
	if err := checkLengths(dst, src); err != nil {
		return err
	}
	if isIdentity(s.ratio) {
		copy(dst, src)
		return nil
	}

	// Input is consumed up to the next hop boundary at a time. The sample
	// that completes a hop is the first one read from the new frame.
	for i := 0; i < len(src); {
		n := min(s.hop-s.pending, len(src)-i)
		s.history.WriteBlock(src[i : i+n])
		s.pending += n

		if s.pending < s.hop {
			copy(dst[i:i+n], s.outHop[s.readPos:s.readPos+n])
			s.readPos += n
			i += n
			continue
		}

		copy(dst[i:i+n-1], s.outHop[s.readPos:s.readPos+n-1])
		if err := s.processFrame(); err != nil {
			return err
		}
		s.pending = 0
		dst[i+n-1] = s.outHop[0]
		s.readPos = 1
		i += n
	}
	return nil
}

func (s *StreamShifter) processFrame() error {
	if err := s.history.Latest(s.frame); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}

	hop := float64(s.hop)
	if err := s.voc.analyze(s.frame, hop); err != nil {
		return err
	}
	s.voc.shiftPeaks(s.ratio, hop)
	if err := s.voc.synthesize(s.synth); err != nil {
		return err
	}

	for i := range s.synth {
		s.synth[i] *= s.scale
	}
	if err := s.ola.Add(s.synth); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	if err := s.ola.Pop(s.outHop); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	return nil
}
