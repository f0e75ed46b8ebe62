// Package engine runs the voice transform on a duplex audio stream.
//
// An Engine owns one pitch → formant → gain chain sized for the configured
// block. The device thread calls [Engine.Process] once per period; that path
// takes no locks and allocates nothing. Faults and device status events are
// handed to the goroutine running [Engine.Run], which logs them, records
// metrics and performs the orderly stop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/voxshift/dsp/core"
	"github.com/cwbudde/voxshift/dsp/effects/formant"
	"github.com/cwbudde/voxshift/dsp/effects/gain"
	"github.com/cwbudde/voxshift/dsp/effects/pitch"
	"github.com/cwbudde/voxshift/dsp/frame"
	"github.com/cwbudde/voxshift/internal/device"
	timestats "github.com/cwbudde/voxshift/stats/time"
)

const (
	statusQueue = 64
	idlePoll    = 100 * time.Microsecond
)

// Engine is the block pipeline orchestrator.
type Engine struct {
	stream StreamConfig
	shift  ShiftParameters
	budget time.Duration
	opts   options
	log    logrus.FieldLogger

	pitch pitch.Shifter
	chain chain
	mono  []float64

	state    atomic.Int32
	inFlight atomic.Int32

	handleMu sync.Mutex
	handle   device.Stream

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}

	faults chan error
	events chan device.StatusFlags

	// Written only by the device thread.
	blocks         atomic.Uint64
	overruns       atomic.Uint64
	underruns      atomic.Uint64
	budgetOverruns atomic.Uint64
	faultCount     atomic.Uint64
	samples        atomic.Uint64
	hot            atomic.Uint64
	sumSqBits      atomic.Uint64
	lastBlock      atomic.Int64

	// Maxima since the last report; report swaps them to zero.
	maxBlock atomic.Int64
	peakBits atomic.Uint64

	reportMu sync.Mutex
	reported counters
	meter    timestats.Meter
}

type counters struct {
	blocks, overruns, underruns, budgetOverruns, samples, hot uint64
	sumSq                                                     float64
}

func (c counters) sub(o counters) counters {
	return counters{
		blocks:         c.blocks - o.blocks,
		overruns:       c.overruns - o.overruns,
		underruns:      c.underruns - o.underruns,
		budgetOverruns: c.budgetOverruns - o.budgetOverruns,
		samples:        c.samples - o.samples,
		hot:            c.hot - o.hot,
		sumSq:          c.sumSq - o.sumSq,
	}
}

// Stats is a diagnostic snapshot.
type Stats struct {
	State          State
	Blocks         uint64
	Overruns       uint64
	Underruns      uint64
	BudgetOverruns uint64
	Faults         uint64
	LastBlock      time.Duration
	// Level aggregates the output of every processed block.
	Level timestats.Level
}

// New validates both configurations and builds every stage with its buffers.
// On success the engine is Configured.
func New(stream StreamConfig, shift ShiftParameters, opts ...Option) (*Engine, error) {
	if err := errors.Join(stream.Validate(), shift.Validate()); err != nil {
		return nil, err
	}
	o := newOptions(opts)

	ps, err := pitch.New(shift.PitchMode, stream.SampleRate, shift.PitchRatio, stream.BlockSize, shift.pitchOptions()...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	fs, err := formant.NewShifter(stream.BlockSize, shift.FormantRatio)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	gs, err := gain.NewStage(shift.Gain, stream.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		stream: stream,
		shift:  shift,
		budget: stream.Budget(),
		opts:   o,
		log:    o.logger.WithField("component", "engine"),
		pitch:  ps,
		mono:   make([]float64, stream.BlockSize),
		done:   make(chan struct{}),
		faults: make(chan error, 1),
		events: make(chan device.StatusFlags, statusQueue),
	}
	e.chain.add("pitch", ps)
	e.chain.add("formant", fs)
	e.chain.add("gain", gs)

	e.state.Store(int32(StateConfigured))
	o.metrics.RecordState(context.Background(), StateConfigured.String())
	e.log.WithFields(logrus.Fields{
		"function":        "New",
		"stages":          e.chain.names(),
		"pitch_mode":      modeName(shift.PitchMode),
		"latency_samples": ps.Latency(),
		"budget":          e.budget,
	}).Debug("engine configured")

	return e, nil
}

func modeName(m pitch.Mode) string {
	if m == "" {
		return string(pitch.ModeStream)
	}
	return string(m)
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Latency is the algorithmic delay of the chain in samples.
func (e *Engine) Latency() int { return e.pitch.Latency() }

// BudgetOverruns counts blocks whose processing took longer than
// BlockSize/SampleRate. Overruns are not compensated.
func (e *Engine) BudgetOverruns() uint64 { return e.budgetOverruns.Load() }

// Done is closed once the device has been released.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Start opens a duplex stream on backend and starts it. Binding failures are
// wrapped with device.ErrBinding and leave the engine Stopped.
func (e *Engine) Start(backend device.Backend) error {
	if backend == nil {
		_ = e.Stop()
		return fmt.Errorf("engine: nil backend: %w", device.ErrBinding)
	}
	if err := e.bind(backend); err != nil {
		if !errors.Is(err, ErrState) {
			_ = e.Stop()
		}
		return err
	}

	e.opts.metrics.RecordState(context.Background(), StateRunning.String())
	e.log.WithFields(logrus.Fields{
		"function":    "Start",
		"sample_rate": e.stream.SampleRate,
		"block_size":  e.stream.BlockSize,
		"pitch_ratio": e.shift.PitchRatio,
	}).Info("engine running")
	return nil
}

func (e *Engine) bind(backend device.Backend) error {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	if s := e.State(); s != StateConfigured {
		return fmt.Errorf("engine: start in state %s: %w", s, ErrState)
	}
	h, err := backend.Open(e.stream.DeviceParams(), e.Process)
	if err != nil {
		return bindingErr(err)
	}
	e.handle = h

	if !e.state.CompareAndSwap(int32(StateConfigured), int32(StateRunning)) {
		return fmt.Errorf("engine: stopped during start: %w", ErrState)
	}
	if err := h.Start(); err != nil {
		return bindingErr(fmt.Errorf("start stream: %w", err))
	}
	return nil
}

func bindingErr(err error) error {
	if errors.Is(err, device.ErrBinding) {
		return fmt.Errorf("engine: %w", err)
	}
	return fmt.Errorf("engine: %w: %w", device.ErrBinding, err)
}

// Process is the device callback. in and out are interleaved blocks of
// BlockSize frames. Outside Running, or when a stage fails, out is silence.
func (e *Engine) Process(in, out []float32, status device.StatusFlags) {
	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	if State(e.state.Load()) != StateRunning {
		core.ZeroFloat32(out)
		return
	}

	start := e.opts.now()
	if status.Overrun() || status.Underrun() {
		e.noteStatus(status)
	}
	if err := e.processBlock(in, out); err != nil {
		core.ZeroFloat32(out)
		e.fail(err)
		return
	}

	elapsed := int64(e.opts.now().Sub(start))
	e.lastBlock.Store(elapsed)
	storeMaxInt(&e.maxBlock, elapsed)
	if time.Duration(elapsed) > e.budget {
		e.budgetOverruns.Add(1)
	}
	e.blocks.Add(1)
}

func (e *Engine) processBlock(in, out []float32) error {
	if err := frame.ToMonoInto(e.mono, in, e.stream.InputChannels); err != nil {
		return err
	}
	if err := e.chain.process(e.mono); err != nil {
		return err
	}
	e.noteLevel(timestats.Measure(e.mono))
	return frame.FromMonoInto(out, e.mono, e.stream.OutputChannels)
}

func (e *Engine) noteStatus(status device.StatusFlags) {
	if status.Overrun() {
		e.overruns.Add(1)
	}
	if status.Underrun() {
		e.underruns.Add(1)
	}
	select {
	case e.events <- status:
	default:
	}
}

func (e *Engine) noteLevel(l timestats.Level) {
	e.samples.Add(uint64(l.Length))
	e.hot.Add(uint64(l.Hot))
	sumSq := math.Float64frombits(e.sumSqBits.Load()) + l.RMS*l.RMS*float64(l.Length)
	e.sumSqBits.Store(math.Float64bits(sumSq))
	storeMaxFloat(&e.peakBits, l.Peak)
}

func (e *Engine) fail(err error) {
	e.faultCount.Add(1)
	if e.state.CompareAndSwap(int32(StateRunning), int32(StateStopped)) {
		select {
		case e.faults <- err:
		default:
		}
	}
}

func storeMaxInt(v *atomic.Int64, x int64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func storeMaxFloat(v *atomic.Uint64, x float64) {
	bits := math.Float64bits(x)
	for {
		old := v.Load()
		if x <= math.Float64frombits(old) || v.CompareAndSwap(old, bits) {
			return
		}
	}
}

// Stop moves the engine to Stopped, waits for an in-flight block and releases
// the device. Only the first call releases; later calls return its result.
// Stop must not be called from the device callback.
func (e *Engine) Stop() error {
	e.state.Store(int32(StateStopped))
	for e.inFlight.Load() > 0 {
		time.Sleep(idlePoll)
	}
	e.stopOnce.Do(func() { e.stopErr = e.release() })
	return e.stopErr
}

func (e *Engine) release() error {
	e.handleMu.Lock()
	h := e.handle
	e.handle = nil
	e.handleMu.Unlock()

	var err error
	if h != nil {
		if err = errors.Join(h.Stop(), h.Close()); err != nil {
			err = fmt.Errorf("engine: release device: %w", err)
		}
	}
	close(e.done)

	e.opts.metrics.RecordState(context.Background(), StateStopped.String())
	entry := e.log.WithFields(logrus.Fields{
		"function":        "Stop",
		"blocks":          e.blocks.Load(),
		"budget_overruns": e.budgetOverruns.Load(),
	})
	if err != nil {
		entry.WithError(err).Warn("engine stopped, device release failed")
	} else {
		entry.Info("engine stopped")
	}
	return err
}

// Run supervises a started engine. It returns when ctx is cancelled, when a
// block fails or when Stop is called elsewhere, and always leaves the engine
// Stopped with the device released.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := e.Stop()
			e.finish(context.WithoutCancel(ctx))
			return err
		case err := <-e.faults:
			return e.failed(ctx, err)
		case <-e.done:
			select {
			case err := <-e.faults:
				return e.failed(ctx, err)
			default:
			}
			e.finish(ctx)
			return nil
		case st := <-e.events:
			e.logStatus(st)
		case <-ticker.C:
			e.report(ctx)
		}
	}
}

func (e *Engine) failed(ctx context.Context, err error) error {
	e.log.WithFields(logrus.Fields{"function": "Run"}).WithError(err).Error("block processing failed, stopping")
	stopErr := e.Stop()
	e.finish(context.WithoutCancel(ctx))
	return errors.Join(fmt.Errorf("engine: %w", err), stopErr)
}

func (e *Engine) finish(ctx context.Context) {
	for drained := false; !drained; {
		select {
		case st := <-e.events:
			e.logStatus(st)
		default:
			drained = true
		}
	}
	e.report(ctx)

	s := e.Stats()
	e.log.WithFields(logrus.Fields{
		"function":        "Run",
		"blocks":          s.Blocks,
		"overruns":        s.Overruns,
		"underruns":       s.Underruns,
		"budget_overruns": s.BudgetOverruns,
		"peak_dbfs":       s.Level.PeakDB(),
		"rms_dbfs":        s.Level.RMSDB(),
		"hot_samples":     s.Level.Hot,
	}).Info("session summary")
}

func (e *Engine) logStatus(st device.StatusFlags) {
	e.log.WithFields(logrus.Fields{
		"function": "Run",
		"status":   st.String(),
	}).Warn("audio device status")
}

func (e *Engine) snapshot() counters {
	return counters{
		blocks:         e.blocks.Load(),
		overruns:       e.overruns.Load(),
		underruns:      e.underruns.Load(),
		budgetOverruns: e.budgetOverruns.Load(),
		samples:        e.samples.Load(),
		hot:            e.hot.Load(),
		sumSq:          math.Float64frombits(e.sumSqBits.Load()),
	}
}

func windowLevel(d counters, peak float64) timestats.Level {
	level := timestats.Level{Length: int(d.samples), Peak: peak, Hot: int(d.hot)}
	if d.samples > 0 {
		level.RMS = math.Sqrt(max(d.sumSq, 0) / float64(d.samples))
	}
	return level
}

// report records the counters accumulated since the previous report.
func (e *Engine) report(ctx context.Context) {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()

	now := e.snapshot()
	d := now.sub(e.reported)
	e.reported = now

	m := e.opts.metrics
	m.RecordXruns(ctx, "overrun", int64(d.overruns))
	m.RecordXruns(ctx, "underrun", int64(d.underruns))
	if d.blocks == 0 {
		return
	}
	m.Blocks.Add(ctx, int64(d.blocks))
	m.BudgetOverruns.Add(ctx, int64(d.budgetOverruns))
	m.HotSamples.Add(ctx, int64(d.hot))

	maxBlock := time.Duration(e.maxBlock.Swap(0))
	peak := math.Float64frombits(e.peakBits.Swap(0))
	m.BlockDuration.Record(ctx, maxBlock.Seconds())
	if peak > 0 {
		m.OutputPeak.Record(ctx, core.LinearToDB(peak))
	}

	level := windowLevel(d, peak)
	e.meter.Update(level)

	if d.hot > 0 {
		e.log.WithFields(logrus.Fields{
			"function":    "report",
			"hot_samples": d.hot,
			"peak_dbfs":   level.PeakDB(),
		}).Debug("output exceeds full scale")
	}
}

// Stats returns a snapshot. It does not touch the metrics or the
// per-window maxima consumed by the periodic report.
func (e *Engine) Stats() Stats {
	e.reportMu.Lock()
	d := e.snapshot().sub(e.reported)
	meter := e.meter
	if d.blocks > 0 {
		meter.Update(windowLevel(d, math.Float64frombits(e.peakBits.Load())))
	}
	e.reportMu.Unlock()

	return Stats{
		State:          e.State(),
		Blocks:         e.blocks.Load(),
		Overruns:       e.overruns.Load(),
		Underruns:      e.underruns.Load(),
		BudgetOverruns: e.budgetOverruns.Load(),
		Faults:         e.faultCount.Load(),
		LastBlock:      time.Duration(e.lastBlock.Load()),
		Level:          meter.Result(),
	}
}
