// Package config loads the voice changer settings from YAML and command-line
// flags.
package config

import (
	"time"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/effects/pitch"
	"github.com/cwbudde/voxshift/internal/engine"
)

// Config is the complete application configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Voice   VoiceConfig   `yaml:"voice"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AudioConfig describes the duplex device stream.
type AudioConfig struct {
	SampleRate     float64 `yaml:"sample_rate"`
	BlockSize      int     `yaml:"block_size"`
	InputChannels  int     `yaml:"input_channels"`
	OutputChannels int     `yaml:"output_channels"`

	// InputDevice and OutputDevice select devices by name. Empty selects the
	// host default.
	InputDevice  string `yaml:"input_device"`
	OutputDevice string `yaml:"output_device"`

	// Latency is the suggested device latency, e.g. "20ms". Zero uses the
	// device's default low latency.
	Latency time.Duration `yaml:"latency"`
}

// VoiceConfig holds the transform parameters.
type VoiceConfig struct {
	PitchRatio float64 `yaml:"pitch_ratio"`
	// PitchSemitones, when set, replaces PitchRatio with 2^(s/12).
	PitchSemitones *float64 `yaml:"pitch_semitones"`

	FormantRatio float64 `yaml:"formant_ratio"`
	Gain         float64 `yaml:"gain"`

	// PitchMode is "stream" or "block".
	PitchMode         string `yaml:"pitch_mode"`
	PitchFrameSize    int    `yaml:"pitch_frame_size"`
	PitchOversampling int    `yaml:"pitch_oversampling"`
}

// LogConfig selects the log level and format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics server, e.g. ":9464". Empty
	// disables the endpoint.
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:     44100,
			BlockSize:      1024,
			InputChannels:  1,
			OutputChannels: 1,
		},
		Voice: VoiceConfig{
			PitchRatio:        1.5,
			FormantRatio:      1.2,
			Gain:              1.2,
			PitchMode:         string(pitch.ModeStream),
			PitchFrameSize:    2048,
			PitchOversampling: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// EffectivePitchRatio resolves PitchSemitones over PitchRatio.
func (v VoiceConfig) EffectivePitchRatio() float64 {
	if v.PitchSemitones != nil {
		return core.SemitonesToRatio(*v.PitchSemitones)
	}
	return v.PitchRatio
}

// Stream returns the engine stream configuration.
func (c *Config) Stream() engine.StreamConfig {
	return engine.StreamConfig{
		SampleRate:     c.Audio.SampleRate,
		BlockSize:      c.Audio.BlockSize,
		InputChannels:  c.Audio.InputChannels,
		OutputChannels: c.Audio.OutputChannels,
		InputDevice:    c.Audio.InputDevice,
		OutputDevice:   c.Audio.OutputDevice,
		Latency:        c.Audio.Latency,
	}
}

// Shift returns the engine transform parameters.
func (c *Config) Shift() engine.ShiftParameters {
	return engine.ShiftParameters{
		PitchRatio:        c.Voice.EffectivePitchRatio(),
		FormantRatio:      c.Voice.FormantRatio,
		Gain:              c.Voice.Gain,
		PitchMode:         pitch.Mode(c.Voice.PitchMode),
		PitchFrameSize:    c.Voice.PitchFrameSize,
		PitchOversampling: c.Voice.PitchOversampling,
	}
}
