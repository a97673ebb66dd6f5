// Package command parses operator commands received on the serial line.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxLineLength is the longest accepted command line, excluding the newline.
const MaxLineLength = 31

var (
	// ErrUnknown is returned for lines that are not a command.
	ErrUnknown = errors.New("unknown command")
	// ErrInvalidRate is returned for RATE values outside the supported set.
	ErrInvalidRate = errors.New("invalid rate")
)

// ErrorMessage returns the operator-facing text for a Parse error.
func ErrorMessage(err error) string {
	if errors.Is(err, ErrInvalidRate) {
		return "Invalid rate. Supported: 0.25, 0.5, 1, 2, 4, 8 Hz"
	}
	return "Unknown command"
}

// Kind identifies a command.
type Kind int

const (
	LEDOn Kind = iota + 1
	LEDOff
	SetRate
	SetMode
	Sample
)

func (k Kind) String() string {
	switch k {
	case LEDOn:
		return "led-on"
	case LEDOff:
		return "led-off"
	case SetRate:
		return "rate"
	case SetMode:
		return "mode"
	case Sample:
		return "sample"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode selects which record a sampling pass emits.
type Mode string

const (
	ModeRead     Mode = "read"
	ModeClassify Mode = "classify"
)

// Command is a parsed operator command.
type Command struct {
	Kind   Kind
	Rate   float64       // SetRate: requested rate in Hz
	Period time.Duration // SetRate: sampling period for Rate
	Mode   Mode          // SetMode
}

// rates maps the supported sampling rates to their periods.
var rates = []struct {
	hz     float64
	period time.Duration
}{
	{0.25, 4000 * time.Millisecond},
	{0.5, 2000 * time.Millisecond},
	{1, 1000 * time.Millisecond},
	{2, 500 * time.Millisecond},
	{4, 250 * time.Millisecond},
	{8, 125 * time.Millisecond},
}

// PeriodForRate returns the sampling period for a supported rate in Hz.
func PeriodForRate(hz float64) (time.Duration, bool) {
	for _, r := range rates {
		if r.hz == hz {
			return r.period, true
		}
	}
	return 0, false
}

// Parse parses one command line. Trailing spaces and CR are ignored.
//
//	1           LED on
//	0           LED off
//	RATE:<hz>   sampling rate, one of 0.25, 0.5, 1, 2, 4, 8
//	MODE:READ   emit reading records
//	MODE:CLASSIFY emit prediction records
//	SAMPLE      sample now
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, " \r\n")
	if len(line) > MaxLineLength {
		return Command{}, ErrUnknown
	}

	switch line {
	case "1":
		return Command{Kind: LEDOn}, nil
	case "0":
		return Command{Kind: LEDOff}, nil
	case "SAMPLE":
		return Command{Kind: Sample}, nil
	case "MODE:READ":
		return Command{Kind: SetMode, Mode: ModeRead}, nil
	case "MODE:CLASSIFY":
		return Command{Kind: SetMode, Mode: ModeClassify}, nil
	}

	if value, ok := strings.CutPrefix(line, "RATE:"); ok {
		hz, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Command{}, ErrInvalidRate
		}
		period, ok := PeriodForRate(hz)
		if !ok {
			return Command{}, ErrInvalidRate
		}
		return Command{Kind: SetRate, Rate: hz, Period: period}, nil
	}

	return Command{}, ErrUnknown
}

// Reply returns the status message acknowledging c.
func (c Command) Reply() string {
	switch c.Kind {
	case LEDOn:
		return "LED ON"
	case LEDOff:
		return "LED OFF"
	case SetRate:
		return fmt.Sprintf("Rate set to %.2f Hz", c.Rate)
	case SetMode:
		return "Mode set to " + string(c.Mode)
	case Sample:
		return "Sampling"
	default:
		return ""
	}
}
