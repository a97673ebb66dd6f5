package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Output   OutputConfig   `yaml:"output"`
	Sampling SamplingConfig `yaml:"sampling"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Model    ModelConfig    `yaml:"model"`
	Mock     MockConfig     `yaml:"mock"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SerialConfig contains the sensor bridge serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// OutputConfig selects where records are written.
// An empty Port means stdout/stdin.
type OutputConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SamplingConfig contains the acquisition cycle parameters.
type SamplingConfig struct {
	Period      time.Duration `yaml:"period"`       // Time between sampling passes
	Samples     int           `yaml:"samples"`      // Reads averaged per pass (1..255)
	MinSettle   time.Duration `yaml:"min_settle"`   // Minimum delay between reads
	Mode        string        `yaml:"mode"`         // "read" or "classify"
	ReadyGating bool          `yaml:"ready_gating"` // Only sample after a ready signal
}

// SensorConfig contains sensor front-end settings applied at startup.
type SensorConfig struct {
	LED   bool `yaml:"led"`
	Gain  int  `yaml:"gain"`  // Gain exponent, 0 = 0.5x ... 10 = 512x
	ATime int  `yaml:"atime"` // Integration time ATIME register
	AStep int  `yaml:"astep"` // Integration time ASTEP register
}

// ModelConfig selects the classifier table.
// An empty Path uses the model built into the binary.
type ModelConfig struct {
	Path           string `yaml:"path"`
	HiddenCapacity int    `yaml:"hidden_capacity"`
}

// MockConfig contains simulated sensor configuration.
type MockConfig struct {
	NoiseLevel  float64       `yaml:"noise_level"`  // Relative noise amplitude (0..1)
	FailureRate float64       `yaml:"failure_rate"` // Probability a read fails
	Scale       float64       `yaml:"scale"`        // Counts at full intensity
	Spectrum    []float64     `yaml:"spectrum"`     // Relative intensity per channel
	ReadyPeriod time.Duration `yaml:"ready_period"` // Interval of the simulated data-ready signal, 0 disables
	Seed        int64         `yaml:"seed"`
}

// LoggingConfig contains log output configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"` // Empty logs to stderr
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: 500 * time.Millisecond,
		},
		Output: OutputConfig{
			BaudRate: 115200,
		},
		Sampling: SamplingConfig{
			Period:    time.Second, // 1 Hz
			Samples:   5,
			MinSettle: 20 * time.Millisecond,
			Mode:      "read",
		},
		Sensor: SensorConfig{
			LED:   false,
			Gain:  9, // 256x
			ATime: 100,
			AStep: 999,
		},
		Model: ModelConfig{
			HiddenCapacity: 16,
		},
		Mock: MockConfig{
			NoiseLevel:  0.02,
			FailureRate: 0.0,
			Scale:       20000,
			Spectrum:    []float64{0.20, 0.35, 0.45, 0.60, 0.80, 0.85, 0.75, 0.50, 0.30, 0.20, 0.15, 0.95},
			ReadyPeriod: 0,
			Seed:        1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9120",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Sampling.Period <= 0 {
		return fmt.Errorf("sampling.period must be positive, got %s", c.Sampling.Period)
	}
	if c.Sampling.MinSettle < 0 {
		return fmt.Errorf("sampling.min_settle must not be negative, got %s", c.Sampling.MinSettle)
	}
	if c.Sampling.Samples < 1 || c.Sampling.Samples > 255 {
		return fmt.Errorf("sampling.samples must be in [1,255], got %d", c.Sampling.Samples)
	}
	switch c.Sampling.Mode {
	case "read", "classify":
	default:
		return fmt.Errorf("sampling.mode must be \"read\" or \"classify\", got %q", c.Sampling.Mode)
	}
	if c.Sensor.Gain < 0 || c.Sensor.Gain > 10 {
		return fmt.Errorf("sensor.gain must be in [0,10], got %d", c.Sensor.Gain)
	}
	if c.Sensor.ATime < 0 || c.Sensor.ATime > 255 {
		return fmt.Errorf("sensor.atime must be in [0,255], got %d", c.Sensor.ATime)
	}
	if c.Sensor.AStep < 0 || c.Sensor.AStep > 65534 {
		return fmt.Errorf("sensor.astep must be in [0,65534], got %d", c.Sensor.AStep)
	}
	// 64 is the classifier's hidden buffer size.
	if c.Model.HiddenCapacity < 1 || c.Model.HiddenCapacity > 64 {
		return fmt.Errorf("model.hidden_capacity must be in [1,64], got %d", c.Model.HiddenCapacity)
	}
	if len(c.Mock.Spectrum) != 12 {
		return fmt.Errorf("mock.spectrum must have 12 values, got %d", len(c.Mock.Spectrum))
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Output.BaudRate == 0 {
		c.Output.BaudRate = def.Output.BaudRate
	}

	if c.Sampling.Period == 0 {
		c.Sampling.Period = def.Sampling.Period
	}
	if c.Sampling.Samples == 0 {
		c.Sampling.Samples = def.Sampling.Samples
	}
	if c.Sampling.MinSettle == 0 {
		c.Sampling.MinSettle = def.Sampling.MinSettle
	}
	if c.Sampling.Mode == "" {
		c.Sampling.Mode = def.Sampling.Mode
	}

	if c.Model.HiddenCapacity == 0 {
		c.Model.HiddenCapacity = def.Model.HiddenCapacity
	}

	if c.Mock.Scale == 0 {
		c.Mock.Scale = def.Mock.Scale
	}
	if len(c.Mock.Spectrum) == 0 {
		c.Mock.Spectrum = def.Mock.Spectrum
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = def.Metrics.Addr
	}
}
