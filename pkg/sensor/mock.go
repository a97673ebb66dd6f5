package sensor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gospectral/pkg/config"
)

// Mock simulates a spectral sensor for testing and development.
type Mock struct {
	cfg *config.MockConfig

	mu      sync.Mutex
	rng     *rand.Rand
	started bool
	led     bool
	gain    Gain
	atime   int
	astep   int
	onReady func()

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMock creates a new simulated sensor.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Mock{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		gain:  Gain256X,
		atime: 100,
		astep: 999,
	}
}

// Begin starts the simulated sensor and its data-ready signal.
func (m *Mock) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if len(m.cfg.Spectrum) != Channels {
		return fmt.Errorf("%w: mock spectrum has %d channels", ErrNotFound, len(m.cfg.Spectrum))
	}

	m.started = true
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if m.cfg.ReadyPeriod > 0 {
		go m.signalReady(m.ctx, m.cfg.ReadyPeriod)
	}
	return nil
}

// Close stops the simulated sensor.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.cancel()
	m.started = false
	return nil
}

// OnReady registers the data-ready callback.
func (m *Mock) OnReady(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReady = fn
}

// ReadAllChannels generates one noisy reading.
func (m *Mock) ReadAllChannels(buf *RawReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if m.cfg.FailureRate > 0 && m.rng.Float64() < m.cfg.FailureRate {
		return ErrReadFailed
	}

	// Counts scale with gain and integration time relative to the defaults.
	exposure := m.gain.Factor() / Gain256X.Factor()
	exposure *= float64((m.atime+1)*(m.astep+1)) / float64(101*1000)
	if m.led {
		exposure *= 1.1
	}

	for i, level := range m.cfg.Spectrum {
		noise := 1 + m.cfg.NoiseLevel*m.rng.NormFloat64()
		v := level * m.cfg.Scale * exposure * noise
		buf[i] = uint16(math.Max(0, math.Min(v, math.MaxUint16)))
	}

	return nil
}

// EnableLED switches the simulated LED.
func (m *Mock) EnableLED(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.led = on
	return nil
}

// LED returns the simulated LED state.
func (m *Mock) LED() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.led
}

// SetGain sets the simulated gain.
func (m *Mock) SetGain(g Gain) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidGain, int(g))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = g
	return nil
}

// SetIntegrationTime sets the simulated integration registers.
func (m *Mock) SetIntegrationTime(atime, astep int) error {
	if atime < 0 || atime > 255 || astep < 0 || astep > 65534 {
		return fmt.Errorf("integration time out of range: atime=%d astep=%d", atime, astep)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atime = atime
	m.astep = astep
	return nil
}

// signalReady fires the data-ready callback periodically, like the
// sensor's interrupt line.
func (m *Mock) signalReady(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			fn := m.onReady
			m.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	}
}
