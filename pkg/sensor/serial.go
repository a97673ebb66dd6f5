package sensor

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/itohio/gospectral/pkg/config"
)

const (
	// DefaultBaudRate is the bridge board's UART speed.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds one request/reply exchange with the bridge.
	DefaultTimeout = 500 * time.Millisecond

	bridgeID = "AS7341"
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial talks to a bridge board that owns the sensor's I2C bus.
// Every request is one line; the bridge answers with one line:
//
//	?              -> AS7341
//	R              -> c0,c1,...,c11 | ERR
//	L1 / L0        -> OK
//	G<gain>        -> OK
//	T<atime>,<astep> -> OK
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration
	log      *zap.SugaredLogger

	open func() (io.ReadWriteCloser, error)

	mu      sync.Mutex
	conn    io.ReadWriteCloser
	pending []byte
}

// NewSerial creates a bridge sensor for the configured port.
func NewSerial(cfg config.SerialConfig, log *zap.SugaredLogger) *Serial {
	s := &Serial{
		port:     cfg.Port,
		baudRate: cfg.BaudRate,
		timeout:  cfg.ReadTimeout,
		log:      log,
	}
	if s.baudRate == 0 {
		s.baudRate = DefaultBaudRate
	}
	if s.timeout == 0 {
		s.timeout = DefaultTimeout
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	s.open = s.openPort
	return s
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s %s)", d.Name, d.VID, d.PID, d.Product)
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}

	return result, nil
}

func (s *Serial) openPort() (io.ReadWriteCloser, error) {
	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(s.timeout); err != nil {
		port.Close()
		return nil, err
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Begin opens the port and checks that the bridge reports a sensor.
func (s *Serial) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: failed to open serial port %s: %v", ErrNotFound, s.port, err)
	}
	s.conn = conn

	reply, err := s.transact("?")
	if err != nil || reply != bridgeID {
		s.closeLocked()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return fmt.Errorf("%w: unexpected identification %q", ErrNotFound, reply)
	}

	s.log.Infow("sensor bridge connected", "port", s.port, "baud", s.baudRate)
	return nil
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Serial) closeLocked() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// ReadAllChannels queries one set of channel counts.
func (s *Serial) ReadAllChannels(buf *RawReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotStarted
	}

	reply, err := s.transact("R")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	reading, err := ParseChannels(reply)
	if err != nil {
		return err
	}
	*buf = reading
	return nil
}

// EnableLED switches the sensor's illumination LED.
func (s *Serial) EnableLED(on bool) error {
	cmd := "L0"
	if on {
		cmd = "L1"
	}
	return s.command(cmd)
}

// SetGain sets the analog gain.
func (s *Serial) SetGain(g Gain) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidGain, int(g))
	}
	return s.command("G" + strconv.Itoa(int(g)))
}

// SetIntegrationTime sets the ATIME and ASTEP registers.
func (s *Serial) SetIntegrationTime(atime, astep int) error {
	if atime < 0 || atime > 255 || astep < 0 || astep > 65534 {
		return fmt.Errorf("integration time out of range: atime=%d astep=%d", atime, astep)
	}
	return s.command(fmt.Sprintf("T%d,%d", atime, astep))
}

// command sends a configuration request that must be acknowledged with OK.
func (s *Serial) command(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotStarted
	}

	reply, err := s.transact(cmd)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd, err)
	}
	if reply != "OK" {
		return fmt.Errorf("command %s rejected: %q", cmd, reply)
	}
	return nil
}

// inputFlusher is implemented by serial.Port.
type inputFlusher interface {
	ResetInputBuffer() error
}

// transact writes one request line and waits for one reply line. Anything
// received before the request, such as a late reply to a request that timed
// out, is discarded so it cannot be taken for this request's reply.
// Caller must hold s.mu.
func (s *Serial) transact(cmd string) (string, error) {
	s.pending = s.pending[:0]
	if f, ok := s.conn.(inputFlusher); ok {
		if err := f.ResetInputBuffer(); err != nil {
			return "", fmt.Errorf("failed to flush input before %s: %w", cmd, err)
		}
	}

	if _, err := s.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	return s.readLine()
}

// readLine returns the next non-empty line. The port's read timeout makes
// Read return (0, nil) when idle, so the deadline is checked here.
func (s *Serial) readLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	var chunk [64]byte

	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}

		if !time.Now().Before(deadline) {
			return "", ErrTimeout
		}

		n, err := s.conn.Read(chunk[:])
		if err != nil {
			return "", err
		}
		s.pending = append(s.pending, chunk[:n]...)
	}
}

// ParseChannels parses a comma-separated line of channel counts.
// Format: c0,c1,...,c11
// Example: 812,1490,2210,3012,4120,4380,3900,2410,1500,980,760,9120
func ParseChannels(line string) (RawReading, error) {
	var r RawReading

	if line == "ERR" {
		return r, ErrReadFailed
	}

	parts := strings.Split(line, ",")
	if len(parts) != Channels {
		return r, fmt.Errorf("%w: expected %d comma-separated values, got %d", ErrReadFailed, Channels, len(parts))
	}

	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return r, fmt.Errorf("%w: channel %s: %v", ErrReadFailed, ChannelNames[i], err)
		}
		r[i] = uint16(v)
	}

	return r, nil
}
