package sensor

import (
	"errors"
	"fmt"
)

// Channels is the number of channels reported by one sensor query.
const Channels = 12

var (
	// ErrNotFound is returned by Begin when no sensor answers.
	ErrNotFound = errors.New("sensor not found")
	// ErrReadFailed marks a single failed query. It is transient.
	ErrReadFailed = errors.New("sensor read failed")
	// ErrNotStarted is returned when the sensor is used before Begin.
	ErrNotStarted = errors.New("sensor not started")
	// ErrInvalidGain is returned for gain values outside the supported range.
	ErrInvalidGain = errors.New("invalid gain")
	// ErrTimeout is returned when the bridge does not answer in time.
	ErrTimeout = errors.New("sensor response timeout")
)

// ChannelNames lists the channels in the order the sensor reports them:
// eleven spectral bands named by wavelength followed by the broadband clear
// channel. The classifier was trained on this order; re-check it against the
// training pipeline before deploying a new model.
var ChannelNames = [Channels]string{
	"410nm", "440nm", "470nm", "510nm", "550nm", "580nm",
	"610nm", "680nm", "730nm", "810nm", "860nm", "clear",
}

// RawReading holds the counts from one successful query.
type RawReading [Channels]uint16

// Gain is the analog gain setting, as a power of two starting at 0.5x.
type Gain int

const (
	Gain0_5X Gain = iota
	Gain1X
	Gain2X
	Gain4X
	Gain8X
	Gain16X
	Gain32X
	Gain64X
	Gain128X
	Gain256X
	Gain512X
)

// Valid reports whether g is a supported setting.
func (g Gain) Valid() bool {
	return g >= Gain0_5X && g <= Gain512X
}

// Factor returns the multiplication factor of the gain setting.
func (g Gain) Factor() float64 {
	return float64(uint(1)<<uint(g)) / 2
}

func (g Gain) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Gain(%d)", int(g))
	}
	if g == Gain0_5X {
		return "0.5x"
	}
	return fmt.Sprintf("%dx", 1<<uint(g-1))
}

// Sensor is a 12-channel spectral sensor.
//
// ReadAllChannels fills buf only on success. On error the buffer contents
// are unspecified and must not be used.
type Sensor interface {
	Begin() error
	ReadAllChannels(buf *RawReading) error
	EnableLED(on bool) error
	SetGain(g Gain) error
	SetIntegrationTime(atime, astep int) error
	Close() error
}

// ReadyNotifier is implemented by sensors that can signal a data-ready
// condition asynchronously. The callback must only record the event.
type ReadyNotifier interface {
	OnReady(fn func())
}

// Ensure implementations satisfy Sensor.
var (
	_ Sensor        = (*Serial)(nil)
	_ Sensor        = (*Mock)(nil)
	_ ReadyNotifier = (*Mock)(nil)
)
