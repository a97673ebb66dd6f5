package sample

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gospectral/pkg/sensor"
)

// MaxSamples is the largest number of reads one cycle may average.
const MaxSamples = 255

var (
	// ErrAllReadsFailed is returned when no read in a cycle succeeded.
	ErrAllReadsFailed = errors.New("all sensor reads failed")
	// ErrInvalidSampleCount is returned for sample counts outside [1, MaxSamples].
	ErrInvalidSampleCount = errors.New("invalid sample count")
)

// ChannelReader is the part of a sensor the aggregator needs.
type ChannelReader interface {
	ReadAllChannels(buf *sensor.RawReading) error
}

// Sleeper pauses between reads.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(time.Duration)

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// Aggregator averages repeated sensor reads into one Reading.
type Aggregator struct {
	reader    ChannelReader
	sleeper   Sleeper
	minSettle time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSleeper replaces time.Sleep between reads.
func WithSleeper(s Sleeper) Option {
	return func(a *Aggregator) { a.sleeper = s }
}

// WithClock replaces time.Now for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger for per-read failures.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(a *Aggregator) { a.log = log }
}

// NewAggregator creates an aggregator reading from r. minSettle is the
// shortest pause allowed between two reads.
func NewAggregator(r ChannelReader, minSettle time.Duration, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:    r,
		sleeper:   SleeperFunc(time.Sleep),
		minSettle: minSettle,
		now:       time.Now,
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire performs samples read attempts and returns the per-channel mean of
// the successful ones. Reads are spread over budget so the whole pass fits
// into the caller's sampling period.
func (a *Aggregator) Acquire(samples int, budget time.Duration) (Reading, error) {
	if samples < 1 || samples > MaxSamples {
		return Reading{}, fmt.Errorf("%w: %d", ErrInvalidSampleCount, samples)
	}

	var (
		acc      Accumulator
		raw      sensor.RawReading
		failures int
	)
	delay := Delay(samples, budget, a.minSettle)

	for i := range samples {
		if err := a.reader.ReadAllChannels(&raw); err != nil {
			failures++
			a.log.Debugw("sensor read failed", "attempt", i+1, "error", err)
		} else {
			acc.Add(&raw)
		}

		if i < samples-1 {
			a.sleeper.Sleep(delay)
		}
	}

	mean, ok := acc.Mean()
	if !ok {
		return Reading{Failures: failures}, fmt.Errorf("%w: %d attempts", ErrAllReadsFailed, samples)
	}

	return Reading{
		Timestamp: a.now(),
		Channels:  mean,
		Successes: acc.Count(),
		Failures:  failures,
	}, nil
}

// Delay returns the pause between two reads: the larger of minSettle and
// budget/(samples+1).
func Delay(samples int, budget, minSettle time.Duration) time.Duration {
	d := budget / time.Duration(samples+1)
	return max(d, minSettle)
}
