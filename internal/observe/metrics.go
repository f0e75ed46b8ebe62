// Package observe provides the voice changer's OpenTelemetry metrics.
//
// Instruments are recorded from the engine's supervising goroutine, never
// from the audio callback. [InitProvider] bridges them to a Prometheus
// exporter so they can be scraped from /metrics. Tests should build
// [Metrics] with [NewMetrics] over a manual reader.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope of every voxshift metric.
const meterName = "github.com/cwbudde/voxshift"

// Metrics holds the metric instruments of the audio engine.
type Metrics struct {
	// BlockDuration tracks the processing time of one block, in seconds.
	BlockDuration metric.Float64Histogram

	// Blocks counts processed blocks.
	Blocks metric.Int64Counter

	// Xruns counts device status events. Use with attribute:
	//   attribute.String("kind", "overrun"|"underrun")
	Xruns metric.Int64Counter

	// BudgetOverruns counts blocks that took longer than their real-time
	// budget.
	BudgetOverruns metric.Int64Counter

	// OutputPeak tracks the output peak level in dBFS.
	OutputPeak metric.Float64Histogram

	// HotSamples counts output samples outside [-1, 1].
	HotSamples metric.Int64Counter

	// StateTransitions counts engine state changes. Use with attribute:
	//   attribute.String("state", ...)
	StateTransitions metric.Int64Counter
}

// blockBuckets covers block durations around typical budgets (5-50 ms).
var blockBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.025, 0.05, 0.1,
}

// peakBuckets are dBFS boundaries.
var peakBuckets = []float64{-60, -40, -20, -12, -6, -3, -1, 0, 3, 6}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BlockDuration, err = m.Float64Histogram("voxshift.block.duration",
		metric.WithDescription("Processing time of one audio block."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(blockBuckets...),
	); err != nil {
		return nil, err
	}
	if met.OutputPeak, err = m.Float64Histogram("voxshift.output.peak",
		metric.WithDescription("Peak output level per reporting interval."),
		metric.WithUnit("dBFS"),
		metric.WithExplicitBucketBoundaries(peakBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Blocks, err = m.Int64Counter("voxshift.blocks",
		metric.WithDescription("Total processed audio blocks."),
	); err != nil {
		return nil, err
	}
	if met.Xruns, err = m.Int64Counter("voxshift.xruns",
		metric.WithDescription("Device overruns and underruns by kind."),
	); err != nil {
		return nil, err
	}
	if met.BudgetOverruns, err = m.Int64Counter("voxshift.budget.overruns",
		metric.WithDescription("Blocks that exceeded their real-time budget."),
	); err != nil {
		return nil, err
	}
	if met.HotSamples, err = m.Int64Counter("voxshift.output.hot_samples",
		metric.WithDescription("Output samples with magnitude above full scale."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("voxshift.engine.state_transitions",
		metric.WithDescription("Engine state changes by target state."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The no-op provider never fails.
		panic(err)
	}
	return m
}

// RecordXruns adds n events of the given kind.
func (m *Metrics) RecordXruns(ctx context.Context, kind string, n int64) {
	if n == 0 {
		return
	}
	m.Xruns.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordState counts one transition into state.
func (m *Metrics) RecordState(ctx context.Context, state string) {
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
