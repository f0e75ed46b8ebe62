package device

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// PortAudio is the production [Backend].
type PortAudio struct {
	initialized bool
	logger      logrus.FieldLogger
}

var _ Backend = (*PortAudio)(nil)

// NewPortAudio creates an uninitialised PortAudio backend.
func NewPortAudio(logger logrus.FieldLogger) *PortAudio {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PortAudio{logger: logger}
}

// Initialize loads the PortAudio library. Calling it twice is a no-op.
func (p *PortAudio) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: failed to initialize PortAudio: %w", ErrBinding, err)
	}
	p.initialized = true
	p.logger.WithFields(logrus.Fields{
		"function": "Initialize",
		"version":  portaudio.VersionText(),
	}).Debug("PortAudio initialized")
	return nil
}

// Terminate releases the PortAudio library.
func (p *PortAudio) Terminate() error {
	if !p.initialized {
		return nil
	}
	p.initialized = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Devices lists every device of every host API.
func (p *PortAudio) Devices() ([]Info, error) {
	infos, _, err := p.devices()
	return infos, err
}

func (p *PortAudio) devices() ([]Info, []*portaudio.DeviceInfo, error) {
	if !p.initialized {
		return nil, nil, errors.New("PortAudio not initialized")
	}
	raw, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list devices: %w", ErrBinding, err)
	}

	// Either default may be absent on headless hosts.
	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	infos := make([]Info, len(raw))
	for i, d := range raw {
		info := Info{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			InputLatency:      d.DefaultLowInputLatency,
			OutputLatency:     d.DefaultLowOutputLatency,
			DefaultInput:      sameDevice(d, defIn),
			DefaultOutput:     sameDevice(d, defOut),
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		infos[i] = info
	}
	return infos, raw, nil
}

func sameDevice(a, b *portaudio.DeviceInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	if a.Name != b.Name {
		return false
	}
	if a.HostApi == nil || b.HostApi == nil {
		return a.HostApi == b.HostApi
	}
	return a.HostApi.Name == b.HostApi.Name
}

// Open selects devices for params and opens a duplex stream with interleaved
// float32 buffers. The stream is not started.
func (p *PortAudio) Open(params Params, cb Callback) (Stream, error) {
	infos, raw, err := p.devices()
	if err != nil {
		return nil, err
	}
	sel, err := Select(infos, params)
	if err != nil {
		return nil, err
	}

	inLatency, outLatency := sel.Input.InputLatency, sel.Output.OutputLatency
	if params.Latency > 0 {
		inLatency, outLatency = params.Latency, params.Latency
	}

	sp := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   raw[sel.Input.Index],
			Channels: params.InputChannels,
			Latency:  inLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   raw[sel.Output.Index],
			Channels: params.OutputChannels,
			Latency:  outLatency,
		},
		SampleRate:      params.SampleRate,
		FramesPerBuffer: params.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(sp, func(in, out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		cb(in, out, mapFlags(flags))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open stream: %w", ErrBinding, err)
	}

	p.logger.WithFields(logrus.Fields{
		"function":      "Open",
		"input_device":  sel.Input.Name,
		"output_device": sel.Output.Name,
		"sample_rate":   params.SampleRate,
		"block_size":    params.FramesPerBuffer,
	}).Info("audio stream opened")

	return stream, nil
}

func mapFlags(f portaudio.StreamCallbackFlags) StatusFlags {
	var s StatusFlags
	if f&portaudio.InputUnderflow != 0 {
		s |= InputUnderflow
	}
	if f&portaudio.InputOverflow != 0 {
		s |= InputOverflow
	}
	if f&portaudio.OutputUnderflow != 0 {
		s |= OutputUnderflow
	}
	if f&portaudio.OutputOverflow != 0 {
		s |= OutputOverflow
	}
	if f&portaudio.PrimingOutput != 0 {
		s |= PrimingOutput
	}
	return s
}
