// Package spectro runs the sampling cycle: acquire an averaged reading,
// normalize it, classify it and report the result.
package spectro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/itohio/gospectral/pkg/command"
	"github.com/itohio/gospectral/pkg/config"
	"github.com/itohio/gospectral/pkg/feature"
	"github.com/itohio/gospectral/pkg/nn"
	"github.com/itohio/gospectral/pkg/report"
	"github.com/itohio/gospectral/pkg/sample"
	"github.com/itohio/gospectral/pkg/sensor"
)

// DefaultPollInterval is how often Run checks whether a cycle is due.
const DefaultPollInterval = 5 * time.Millisecond

var (
	// ErrSensorNotFound is returned by Start when the sensor does not answer.
	ErrSensorNotFound = errors.New("sensor not found")
	// ErrModelShape is returned when the model does not take one value per channel.
	ErrModelShape = errors.New("model input size does not match sensor channels")
)

// Result describes one completed cycle.
type Result struct {
	Reading    sample.Reading
	Features   feature.Vector
	Prediction *nn.Prediction // nil in read mode or on failure
	Err        error
}

// Controller owns the sampling cycle. Step and HandleCommand must be called
// from one goroutine; Signal may be called from any goroutine.
type Controller struct {
	sampling config.SamplingConfig
	sensorCf config.SensorConfig

	sensor   sensor.Sensor
	agg      *sample.Aggregator
	model    nn.Model
	reporter *report.Reporter
	metrics  *Metrics
	log      *zap.SugaredLogger
	now      func() time.Time
	poll     time.Duration

	aggOpts []sample.Option

	// ready is set by the data-ready signal and SAMPLE command, and
	// consumed by Step.
	ready atomic.Bool

	mu     sync.RWMutex
	state  State
	period time.Duration
	mode   command.Mode
	led    bool
	epoch  time.Time
	last   time.Time

	cbMu      sync.RWMutex
	callbacks []func(Result)
	observers []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSleeper replaces the pause between reads within a pass.
func WithSleeper(s sample.Sleeper) Option {
	return func(c *Controller) { c.aggOpts = append(c.aggOpts, sample.WithSleeper(s)) }
}

// WithRegisterer registers the controller metrics with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Controller) { c.metrics = NewMetrics(reg) }
}

// WithPollInterval sets how often Run checks whether a cycle is due.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.poll = d }
}

// New creates a controller. The model must take one input per sensor channel.
func New(cfg *config.Config, s sensor.Sensor, model nn.Model, r *report.Reporter, opts ...Option) (*Controller, error) {
	if model.Inputs() != sensor.Channels {
		return nil, fmt.Errorf("%w: model has %d inputs, sensor has %d channels", ErrModelShape, model.Inputs(), sensor.Channels)
	}

	c := &Controller{
		sampling: cfg.Sampling,
		sensorCf: cfg.Sensor,
		sensor:   s,
		model:    model,
		reporter: r,
		log:      zap.NewNop().Sugar(),
		now:      time.Now,
		poll:     DefaultPollInterval,
		state:    Idle,
		period:   cfg.Sampling.Period,
		mode:     command.Mode(cfg.Sampling.Mode),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(prometheus.NewRegistry())
	}

	aggOpts := append([]sample.Option{
		sample.WithClock(c.now),
		sample.WithLogger(c.log),
	}, c.aggOpts...)
	c.agg = sample.NewAggregator(s, cfg.Sampling.MinSettle, aggOpts...)

	c.metrics.SamplingPeriod.Set(c.period.Seconds())
	return c, nil
}

// Start initializes the sensor and applies its front-end settings. A sensor
// that does not answer is fatal: there is nothing useful to do without it.
func (c *Controller) Start() error {
	if err := c.sensor.Begin(); err != nil {
		return fmt.Errorf("%w: %v", ErrSensorNotFound, err)
	}

	if err := c.sensor.SetGain(sensor.Gain(c.sensorCf.Gain)); err != nil {
		c.log.Warnw("failed to set gain", "gain", c.sensorCf.Gain, "error", err)
	}
	if err := c.sensor.SetIntegrationTime(c.sensorCf.ATime, c.sensorCf.AStep); err != nil {
		c.log.Warnw("failed to set integration time", "atime", c.sensorCf.ATime, "astep", c.sensorCf.AStep, "error", err)
	}
	if err := c.sensor.EnableLED(c.sensorCf.LED); err != nil {
		c.log.Warnw("failed to set LED", "on", c.sensorCf.LED, "error", err)
	}

	if n, ok := c.sensor.(sensor.ReadyNotifier); ok {
		n.OnReady(c.Signal)
	}

	now := c.now()
	c.mu.Lock()
	c.epoch = now
	c.last = now
	c.led = c.sensorCf.LED
	mode := c.mode
	c.mu.Unlock()

	c.log.Infow("sensor initialized",
		"gain", sensor.Gain(c.sensorCf.Gain).String(),
		"atime", c.sensorCf.ATime,
		"astep", c.sensorCf.AStep,
		"period", c.Period(),
		"samples", c.sampling.Samples,
		"mode", mode,
	)

	if mode == command.ModeClassify {
		c.emitBanner()
	}
	return nil
}

// Signal records a data-ready condition. Safe to call from any goroutine;
// it only sets a flag that the next Step consumes.
func (c *Controller) Signal() {
	c.ready.Store(true)
}

// Period returns the current sampling period.
func (c *Controller) Period() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.period
}

// Mode returns the current record mode.
func (c *Controller) Mode() command.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// LED returns the last LED state requested from the sensor.
func (c *Controller) LED() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.led
}

// State returns the current cycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnCycle registers a callback invoked after every completed cycle.
func (c *Controller) OnCycle(cb func(Result)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// OnState registers a callback invoked on every state transition.
func (c *Controller) OnState(cb func(State)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.observers = append(c.observers, cb)
}

// Run drives Step from a ticker and applies command lines between cycles
// until ctx is canceled. Closing commands only stops command handling.
func (c *Controller) Run(ctx context.Context, commands <-chan string) error {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			c.HandleCommand(line)
		case <-ticker.C:
			c.Step(c.now())
		}
	}
}

// Step runs one full cycle if it is due at now and reports whether it did.
// A cycle is due when the period has elapsed since the previous one. With
// ready gating, the data-ready signal must also have been seen; without
// it, the signal requests a cycle immediately.
func (c *Controller) Step(now time.Time) bool {
	c.mu.Lock()
	if now.Before(c.last) {
		// Clock went backwards; restart the period from here.
		c.last = now
	}
	elapsed := now.Sub(c.last) >= c.period
	c.mu.Unlock()

	if c.sampling.ReadyGating {
		if !elapsed || !c.ready.CompareAndSwap(true, false) {
			return false
		}
	} else {
		requested := c.ready.CompareAndSwap(true, false)
		if !elapsed && !requested {
			return false
		}
	}

	c.mu.Lock()
	c.last = now
	c.mu.Unlock()

	res := c.cycle()
	c.notify(res)
	return true
}

// cycle performs IDLE -> SAMPLING -> AGGREGATING -> NORMALIZING ->
// INFERRING -> REPORTING -> IDLE. Read mode skips the classifier.
func (c *Controller) cycle() Result {
	defer c.setState(Idle)

	c.metrics.Cycles.Inc()
	c.setState(Sampling)

	reading, err := c.agg.Acquire(c.sampling.Samples, c.Period())
	c.metrics.ReadFailures.Add(float64(reading.Failures))

	c.setState(Aggregating)
	if err != nil {
		c.metrics.AggregationFailures.Inc()
		c.log.Warnw("sampling pass failed", "error", err)
		c.setState(Reporting)
		c.emit(c.reporter.EmitError(report.MsgReadFailed))
		return Result{Reading: reading, Err: err}
	}
	if reading.Failures > 0 {
		c.log.Debugw("sampling pass degraded", "successes", reading.Successes, "failures", reading.Failures)
	}

	res := Result{Reading: reading}

	if c.Mode() == command.ModeRead {
		c.setState(Reporting)
		c.emit(c.reporter.EmitReading(reading.Channels, c.millis(reading.Timestamp)))
		return res
	}

	c.setState(Normalizing)
	res.Features = feature.FromReading(reading)

	c.setState(Inferring)
	p := c.model.Classify(res.Features[:])
	res.Prediction = &p
	c.metrics.Predictions.WithLabelValues(p.Name).Inc()
	c.metrics.InferenceLatency.Observe(p.Latency.Seconds())

	c.setState(Reporting)
	c.emit(c.reporter.EmitPrediction(p))
	return res
}

// HandleCommand parses and applies one operator command line and writes
// the reply record.
func (c *Controller) HandleCommand(line string) {
	cmd, err := command.Parse(line)
	if err != nil {
		c.metrics.Commands.WithLabelValues("invalid").Inc()
		c.log.Debugw("rejected command", "line", line, "error", err)
		c.emit(c.reporter.EmitError(command.ErrorMessage(err)))
		return
	}
	c.metrics.Commands.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case command.LEDOn, command.LEDOff:
		on := cmd.Kind == command.LEDOn
		if err := c.sensor.EnableLED(on); err != nil {
			c.log.Warnw("failed to switch LED", "on", on, "error", err)
			c.emit(c.reporter.EmitError("Failed to switch LED"))
			return
		}
		c.mu.Lock()
		c.led = on
		c.mu.Unlock()
	case command.SetRate:
		c.mu.Lock()
		c.period = cmd.Period
		c.mu.Unlock()
		c.metrics.SamplingPeriod.Set(cmd.Period.Seconds())
		c.log.Infow("sampling rate changed", "hz", cmd.Rate, "period", cmd.Period)
	case command.SetMode:
		c.mu.Lock()
		c.mode = cmd.Mode
		c.mu.Unlock()
	case command.Sample:
		c.Signal()
	}

	c.emit(c.reporter.EmitStatus(cmd.Reply()))
}

func (c *Controller) emitBanner() {
	c.emit(c.reporter.EmitLine("Model loaded."))
	names := make([]string, c.model.Outputs())
	for i := range names {
		names[i] = c.model.ClassName(i)
	}
	c.emit(c.reporter.EmitLine("Classes: " + strings.Join(names, " ")))
}

// emit records a failed write. Output is best-effort and never retried.
func (c *Controller) emit(err error) {
	if err != nil {
		c.metrics.EmitFailures.Inc()
		c.log.Warnw("failed to emit record", "error", err)
	}
}

// millis returns t as milliseconds since Start.
func (c *Controller) millis(t time.Time) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return t.Sub(c.epoch).Milliseconds()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.metrics.State.Set(float64(s))

	c.cbMu.RLock()
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.cbMu.RUnlock()

	for _, cb := range observers {
		cb(s)
	}
}

// notify invokes the cycle callbacks without holding any locks.
func (c *Controller) notify(res Result) {
	c.cbMu.RLock()
	callbacks := make([]func(Result), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(res)
	}
}
