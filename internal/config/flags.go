package config

import "flag"

// Flags binds command-line overrides for the configuration. Only flags that
// were set on the command line are applied.
type Flags struct {
	fs     *flag.FlagSet
	values Config
	semis  float64
	apply  map[string]func(*Config)
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: Default(), apply: make(map[string]func(*Config))}
	v := &f.values

	f.floatVar("sample-rate", &v.Audio.SampleRate, "sample rate in Hz", func(c *Config) { c.Audio.SampleRate = v.Audio.SampleRate })
	f.intVar("block-size", &v.Audio.BlockSize, "frames per device block", func(c *Config) { c.Audio.BlockSize = v.Audio.BlockSize })
	f.intVar("input-channels", &v.Audio.InputChannels, "input channels (1 or 2)", func(c *Config) { c.Audio.InputChannels = v.Audio.InputChannels })
	f.intVar("output-channels", &v.Audio.OutputChannels, "output channels (1 or 2)", func(c *Config) { c.Audio.OutputChannels = v.Audio.OutputChannels })
	f.stringVar("input-device", &v.Audio.InputDevice, "input device name (default device if empty)", func(c *Config) { c.Audio.InputDevice = v.Audio.InputDevice })
	f.stringVar("output-device", &v.Audio.OutputDevice, "output device name (default device if empty)", func(c *Config) { c.Audio.OutputDevice = v.Audio.OutputDevice })
	fs.DurationVar(&v.Audio.Latency, "latency", v.Audio.Latency, "suggested device latency (0 = device default)")
	f.apply["latency"] = func(c *Config) { c.Audio.Latency = v.Audio.Latency }

	f.floatVar("pitch", &v.Voice.PitchRatio, "pitch ratio", func(c *Config) {
		c.Voice.PitchRatio = v.Voice.PitchRatio
		c.Voice.PitchSemitones = nil
	})
	fs.Float64Var(&f.semis, "semitones", 0, "pitch shift in semitones (overrides -pitch)")
	f.apply["semitones"] = func(c *Config) {
		s := f.semis
		c.Voice.PitchSemitones = &s
	}
	f.floatVar("formant", &v.Voice.FormantRatio, "formant ratio", func(c *Config) { c.Voice.FormantRatio = v.Voice.FormantRatio })
	f.floatVar("gain", &v.Voice.Gain, "linear output gain", func(c *Config) { c.Voice.Gain = v.Voice.Gain })
	f.stringVar("pitch-mode", &v.Voice.PitchMode, "pitch algorithm: stream or block", func(c *Config) { c.Voice.PitchMode = v.Voice.PitchMode })
	f.intVar("pitch-frame", &v.Voice.PitchFrameSize, "stream-mode analysis frame size", func(c *Config) { c.Voice.PitchFrameSize = v.Voice.PitchFrameSize })
	f.intVar("pitch-oversampling", &v.Voice.PitchOversampling, "stream-mode overlap factor (hops per frame)", func(c *Config) { c.Voice.PitchOversampling = v.Voice.PitchOversampling })

	f.stringVar("log-level", &v.Log.Level, "log level: debug, info, warn, error", func(c *Config) { c.Log.Level = v.Log.Level })
	f.stringVar("log-format", &v.Log.Format, "log format: text or json", func(c *Config) { c.Log.Format = v.Log.Format })
	f.stringVar("metrics-listen", &v.Metrics.Listen, "address of the Prometheus /metrics endpoint (disabled if empty)", func(c *Config) { c.Metrics.Listen = v.Metrics.Listen })

	return f
}

func (f *Flags) floatVar(name string, p *float64, usage string, apply func(*Config)) {
	f.fs.Float64Var(p, name, *p, usage)
	f.apply[name] = apply
}

func (f *Flags) intVar(name string, p *int, usage string, apply func(*Config)) {
	f.fs.IntVar(p, name, *p, usage)
	f.apply[name] = apply
}

func (f *Flags) stringVar(name string, p *string, usage string, apply func(*Config)) {
	f.fs.StringVar(p, name, *p, usage)
	f.apply[name] = apply
}

// Apply copies every flag given on the command line into cfg and
// revalidates it.
func (f *Flags) Apply(cfg *Config) error {
	f.fs.Visit(func(fl *flag.Flag) {
		if apply, ok := f.apply[fl.Name]; ok {
			apply(cfg)
		}
	})
	return Validate(cfg)
}
