package pitch

import "github.com/cwbudde/voxshift/dsp/window"

const (
	defaultStreamFrameSize = 2048
	defaultBlockFrameSize  = 256
	defaultOversampling    = 4

	minFrameSize    = 64
	minOversampling = 4
)

// Option configures a shifter.
type Option func(*options)

type options struct {
	frameSize    int
	oversampling int
	historySize  int
	windowType   window.Type
}

func newOptions(frameSize int, opts []Option) options {
	o := options{
		frameSize:    frameSize,
		oversampling: defaultOversampling,
		windowType:   window.TypeHann,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.historySize == 0 {
		o.historySize = o.frameSize
	}
	return o
}

// WithFrameSize sets the STFT frame size. It must be a power of two >= 64.
func WithFrameSize(n int) Option {
	return func(o *options) { o.frameSize = n }
}

// WithOversampling sets frames per frame length; the hop is frame/oversampling.
func WithOversampling(n int) Option {
	return func(o *options) { o.oversampling = n }
}

// WithHistorySize sets the input history capacity of a StreamShifter.
// It must hold at least one frame.
func WithHistorySize(n int) Option {
	return func(o *options) { o.historySize = n }
}

// WithWindow selects the analysis/synthesis window.
func WithWindow(t window.Type) Option {
	return func(o *options) { o.windowType = t }
}
