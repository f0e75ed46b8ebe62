package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/effects/pitch"
	"github.com/cwbudde/voxshift/dsp/frame"
	"github.com/cwbudde/voxshift/internal/device"
)

// StreamConfig describes the device stream. It is fixed for the session.
type StreamConfig struct {
	SampleRate     float64
	BlockSize      int
	InputChannels  int
	OutputChannels int

	// InputDevice and OutputDevice select devices by name; empty selects the
	// host default.
	InputDevice  string
	OutputDevice string

	// Latency is the suggested device latency; zero uses the device default.
	Latency time.Duration
}

// Validate reports malformed rates and sizes as core.ErrInvalidParameter and
// channel counts outside {1, 2} as core.ErrUnsupportedChannelLayout.
func (c StreamConfig) Validate() error {
	var errs []error
	if !core.IsFinitePositive(c.SampleRate) {
		errs = append(errs, fmt.Errorf("engine: sample rate must be positive and finite: %v: %w",
			c.SampleRate, core.ErrInvalidParameter))
	}
	if c.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("engine: block size must be >= 1: %d: %w",
			c.BlockSize, core.ErrInvalidParameter))
	}
	if c.Latency < 0 {
		errs = append(errs, fmt.Errorf("engine: latency must not be negative: %v: %w",
			c.Latency, core.ErrInvalidParameter))
	}
	if err := frame.ValidateLayout(c.InputChannels); err != nil {
		errs = append(errs, fmt.Errorf("engine: input: %w", err))
	}
	if err := frame.ValidateLayout(c.OutputChannels); err != nil {
		errs = append(errs, fmt.Errorf("engine: output: %w", err))
	}
	return errors.Join(errs...)
}

// Budget is the real-time duration of one block.
func (c StreamConfig) Budget() time.Duration {
	return time.Duration(float64(c.BlockSize) / c.SampleRate * float64(time.Second))
}

// DeviceParams converts c to the parameters of a duplex device stream.
func (c StreamConfig) DeviceParams() device.Params {
	return device.Params{
		InputDevice:     c.InputDevice,
		OutputDevice:    c.OutputDevice,
		InputChannels:   c.InputChannels,
		OutputChannels:  c.OutputChannels,
		SampleRate:      c.SampleRate,
		FramesPerBuffer: c.BlockSize,
		Latency:         c.Latency,
	}
}

// ShiftParameters are the voice transform settings.
type ShiftParameters struct {
	PitchRatio   float64
	FormantRatio float64
	Gain         float64

	// PitchMode selects the pitch algorithm; empty selects stream mode.
	PitchMode pitch.Mode
	// PitchFrameSize and PitchOversampling tune the stream-mode vocoder.
	// Zero keeps the defaults.
	PitchFrameSize    int
	PitchOversampling int
}

// Validate checks the ratios and the gain.
func (p ShiftParameters) Validate() error {
	var errs []error
	if !core.IsFinitePositive(p.PitchRatio) {
		errs = append(errs, fmt.Errorf("engine: pitch ratio must be positive and finite: %v: %w",
			p.PitchRatio, core.ErrInvalidParameter))
	}
	if !core.IsFinitePositive(p.FormantRatio) {
		errs = append(errs, fmt.Errorf("engine: formant ratio must be positive and finite: %v: %w",
			p.FormantRatio, core.ErrInvalidParameter))
	}
	if !core.IsFinite(p.Gain) {
		errs = append(errs, fmt.Errorf("engine: gain must be finite: %v: %w", p.Gain, core.ErrInvalidParameter))
	}
	switch p.PitchMode {
	case "", pitch.ModeStream, pitch.ModeBlock:
	default:
		errs = append(errs, fmt.Errorf("engine: unknown pitch mode %q: %w", p.PitchMode, core.ErrInvalidParameter))
	}
	if p.PitchMode != pitch.ModeBlock && (p.PitchFrameSize < 0 || p.PitchOversampling < 0) {
		errs = append(errs, fmt.Errorf("engine: pitch frame size and oversampling must not be negative: %w",
			core.ErrInvalidParameter))
	}
	return errors.Join(errs...)
}

func (p ShiftParameters) pitchOptions() []pitch.Option {
	// Block mode keeps its own short frame.
	if p.PitchMode == pitch.ModeBlock {
		return nil
	}
	var opts []pitch.Option
	if p.PitchFrameSize > 0 {
		opts = append(opts, pitch.WithFrameSize(p.PitchFrameSize))
	}
	if p.PitchOversampling > 0 {
		opts = append(opts, pitch.WithOversampling(p.PitchOversampling))
	}
	return opts
}
