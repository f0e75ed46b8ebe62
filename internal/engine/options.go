package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/voxshift/internal/observe"
)

const defaultReportInterval = time.Second

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger         logrus.FieldLogger
	metrics        *observe.Metrics
	now            func() time.Time
	reportInterval time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		logger:         logrus.StandardLogger(),
		now:            time.Now,
		reportInterval: defaultReportInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.metrics == nil {
		o.metrics = observe.Discard()
	}
	return o
}

// WithLogger sets the logger used by the supervising goroutine.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records diagnostics into m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now for block duration measurement.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithReportInterval sets how often Run flushes diagnostics.
func WithReportInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.reportInterval = d
		}
	}
}
