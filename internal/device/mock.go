package device

import (
	"errors"
	"fmt"
	"sync"
)

// Mock is an in-memory [Backend]. The opened stream runs no thread of its
// own: tests drive the callback with [MockStream.Pump].
type Mock struct {
	mu      sync.Mutex
	devices []Info

	// OpenErr and StartErr, when set, are returned by Open and Start.
	OpenErr  error
	StartErr error

	initialized bool
	opened      []*MockStream
}

var _ Backend = (*Mock)(nil)

// NewMock creates a mock host with one default duplex stereo device.
func NewMock() *Mock {
	return NewMockWithDevices([]Info{{
		Index:             0,
		Name:              "Mock Duplex",
		HostAPI:           "mock",
		MaxInputChannels:  2,
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
		DefaultInput:      true,
		DefaultOutput:     true,
	}})
}

// NewMockWithDevices creates a mock host exposing devs.
func NewMockWithDevices(devs []Info) *Mock {
	return &Mock{devices: devs}
}

func (m *Mock) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

func (m *Mock) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

func (m *Mock) Devices() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Info(nil), m.devices...), nil
}

// Open validates params against the mock devices the same way the PortAudio
// backend does.
func (m *Mock) Open(p Params, cb Callback) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinding, m.OpenErr)
	}
	sel, err := Select(m.devices, p)
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, errors.New("mock: nil callback")
	}
	s := &MockStream{params: p, selection: sel, cb: cb, startErr: m.StartErr}
	m.opened = append(m.opened, s)
	return s, nil
}

// Streams returns every stream opened so far.
func (m *Mock) Streams() []*MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockStream(nil), m.opened...)
}

// MockStream is a stream opened by [Mock].
type MockStream struct {
	mu        sync.Mutex
	params    Params
	selection Selection
	cb        Callback
	startErr  error

	running bool
	closed  bool
	starts  int
	stops   int
	closes  int
}

var _ Stream = (*MockStream)(nil)

func (s *MockStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	if s.closed {
		return errors.New("mock: stream closed")
	}
	s.running = true
	return nil
}

func (s *MockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.running = false
	return nil
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.running = false
	s.closed = true
	return nil
}

// Params returns the parameters the stream was opened with.
func (s *MockStream) Params() Params { return s.params }

// Selection returns the devices the stream was bound to.
func (s *MockStream) Selection() Selection { return s.selection }

// Counts returns how often Start, Stop and Close were called.
func (s *MockStream) Counts() (starts, stops, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops, s.closes
}

// Running reports whether the stream is started and not stopped.
func (s *MockStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pump runs the callback once on in and returns the output block. in must
// hold FramesPerBuffer*InputChannels samples.
func (s *MockStream) Pump(in []float32, status StatusFlags) ([]float32, error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil, errors.New("mock: stream not running")
	}
	if want := s.params.FramesPerBuffer * s.params.InputChannels; len(in) != want {
		return nil, fmt.Errorf("mock: input block holds %d samples, want %d", len(in), want)
	}
	out := make([]float32, s.params.FramesPerBuffer*s.params.OutputChannels)
	s.cb(in, out, status)
	return out, nil
}
