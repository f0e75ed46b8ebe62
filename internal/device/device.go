// Package device binds the voice changer to a full-duplex audio device.
//
// A [Backend] enumerates devices and opens a [Stream] whose callback receives
// one interleaved input block and fills one interleaved output block per
// period. The PortAudio backend is the production binding; [Mock] drives the
// callback synchronously for tests.
package device

import (
	"errors"
	"strings"
	"time"
)

// ErrBinding reports that the audio device could not be opened or started.
// It is fatal at startup.
var ErrBinding = errors.New("device binding failure")

// ErrNoDevices reports that the host exposes no audio devices at all.
var ErrNoDevices = errors.New("no audio devices found")

// StatusFlags carries the device's per-callback status bits.
type StatusFlags uint8

const (
	InputUnderflow StatusFlags = 1 << iota
	InputOverflow
	OutputUnderflow
	OutputOverflow
	PrimingOutput
)

var flagNames = []struct {
	flag StatusFlags
	name string
}{
	{InputUnderflow, "input underflow"},
	{InputOverflow, "input overflow"},
	{OutputUnderflow, "output underflow"},
	{OutputOverflow, "output overflow"},
	{PrimingOutput, "priming output"},
}

// Overrun reports whether input samples were dropped.
func (f StatusFlags) Overrun() bool { return f&(InputOverflow|OutputOverflow) != 0 }

// Underrun reports whether the device ran out of samples.
func (f StatusFlags) Underrun() bool { return f&(InputUnderflow|OutputUnderflow) != 0 }

func (f StatusFlags) String() string {
	if f == 0 {
		return "ok"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Callback processes one period. in and out are interleaved float32 blocks of
// FramesPerBuffer frames; the callback must fill out completely.
type Callback func(in, out []float32, status StatusFlags)

// Info describes one audio device.
type Info struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	InputLatency      time.Duration
	OutputLatency     time.Duration
	DefaultInput      bool
	DefaultOutput     bool
}

// Params configures a duplex stream.
type Params struct {
	// InputDevice and OutputDevice select devices by name. Empty selects the
	// host default.
	InputDevice  string
	OutputDevice string

	InputChannels   int
	OutputChannels  int
	SampleRate      float64
	FramesPerBuffer int

	// Latency is the suggested device latency. Zero uses the device's
	// default low latency.
	Latency time.Duration
}

// Backend is an audio host API.
type Backend interface {
	Initialize() error
	Terminate() error
	Devices() ([]Info, error)
	Open(p Params, cb Callback) (Stream, error)
}

// Stream is a bound duplex stream. Close releases the device.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}
