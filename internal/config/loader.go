package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/effects/pitch"
)

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. Unknown keys are rejected; an empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg and returns a joined error listing every problem.
func Validate(cfg *Config) error {
	var errs []error

	a := cfg.Audio
	if !core.IsFinitePositive(a.SampleRate) {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %v: %w", a.SampleRate, core.ErrInvalidParameter))
	}
	if a.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("audio.block_size must be >= 1, got %d: %w", a.BlockSize, core.ErrInvalidParameter))
	}
	if a.InputChannels != 1 && a.InputChannels != 2 {
		errs = append(errs, fmt.Errorf("audio.input_channels must be 1 or 2, got %d: %w", a.InputChannels, core.ErrUnsupportedChannelLayout))
	}
	if a.OutputChannels != 1 && a.OutputChannels != 2 {
		errs = append(errs, fmt.Errorf("audio.output_channels must be 1 or 2, got %d: %w", a.OutputChannels, core.ErrUnsupportedChannelLayout))
	}
	if a.Latency < 0 {
		errs = append(errs, fmt.Errorf("audio.latency must not be negative, got %v: %w", a.Latency, core.ErrInvalidParameter))
	}

	v := cfg.Voice
	if !core.IsFinitePositive(v.EffectivePitchRatio()) {
		errs = append(errs, fmt.Errorf("voice.pitch_ratio must be positive, got %v: %w", v.EffectivePitchRatio(), core.ErrInvalidParameter))
	}
	if !core.IsFinitePositive(v.FormantRatio) {
		errs = append(errs, fmt.Errorf("voice.formant_ratio must be positive, got %v: %w", v.FormantRatio, core.ErrInvalidParameter))
	}
	if !core.IsFinite(v.Gain) {
		errs = append(errs, fmt.Errorf("voice.gain must be finite, got %v: %w", v.Gain, core.ErrInvalidParameter))
	}
	switch pitch.Mode(v.PitchMode) {
	case pitch.ModeStream, pitch.ModeBlock:
	default:
		errs = append(errs, fmt.Errorf("voice.pitch_mode %q is invalid; valid values: stream, block: %w", v.PitchMode, core.ErrInvalidParameter))
	}
	// The block shifter keeps its own frame; the tuning pair only applies
	// to stream mode.
	if pitch.Mode(v.PitchMode) != pitch.ModeBlock {
		if v.PitchFrameSize < 64 || !core.IsPowerOf2(v.PitchFrameSize) {
			errs = append(errs, fmt.Errorf("voice.pitch_frame_size must be a power of two >= 64, got %d: %w", v.PitchFrameSize, core.ErrInvalidParameter))
		}
		if v.PitchOversampling < 4 || (v.PitchFrameSize > 0 && v.PitchFrameSize%v.PitchOversampling != 0) {
			errs = append(errs, fmt.Errorf("voice.pitch_oversampling must be >= 4 and divide the frame size, got %d: %w", v.PitchOversampling, core.ErrInvalidParameter))
		}
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	return errors.Join(errs...)
}
