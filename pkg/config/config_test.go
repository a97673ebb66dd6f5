package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, time.Second, cfg.Sampling.Period)
	assert.Equal(t, 5, cfg.Sampling.Samples)
	assert.Equal(t, 20*time.Millisecond, cfg.Sampling.MinSettle)
	assert.Equal(t, "read", cfg.Sampling.Mode)
	assert.Equal(t, 16, cfg.Model.HiddenCapacity)
	assert.Len(t, cfg.Mock.Spectrum, 12)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
  baud_rate: 57600

sampling:
  period: 250ms
  samples: 8
  min_settle: 10ms
  mode: classify
  ready_gating: true

sensor:
  led: true
  gain: 7

model:
  path: "model.yaml"
  hidden_capacity: 32

metrics:
  enabled: true
  addr: "127.0.0.1:9000"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Sampling.Period)
	assert.Equal(t, 8, cfg.Sampling.Samples)
	assert.Equal(t, 10*time.Millisecond, cfg.Sampling.MinSettle)
	assert.Equal(t, "classify", cfg.Sampling.Mode)
	assert.True(t, cfg.Sampling.ReadyGating)
	assert.True(t, cfg.Sensor.LED)
	assert.Equal(t, 7, cfg.Sensor.Gain)
	assert.Equal(t, "model.yaml", cfg.Model.Path)
	assert.Equal(t, 32, cfg.Model.HiddenCapacity)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Metrics.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial:\n  port: \"COM4\"\n")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "COM4", cfg.Serial.Port)

	// Should use defaults for missing fields
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, time.Second, cfg.Sampling.Period)
	assert.Equal(t, 5, cfg.Sampling.Samples)
	assert.Equal(t, ":9120", cfg.Metrics.Addr)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "too many samples", yaml: "sampling:\n  samples: 256\n"},
		{name: "negative samples", yaml: "sampling:\n  samples: -1\n"},
		{name: "unknown mode", yaml: "sampling:\n  mode: stream\n"},
		{name: "short spectrum", yaml: "mock:\n  spectrum: [1, 2, 3]\n"},
		{name: "negative period", yaml: "sampling:\n  period: -1s\n"},
		{name: "negative settle", yaml: "sampling:\n  min_settle: -5ms\n"},
		{name: "gain too high", yaml: "sensor:\n  gain: 11\n"},
		{name: "negative gain", yaml: "sensor:\n  gain: -1\n"},
		{name: "atime too high", yaml: "sensor:\n  atime: 256\n"},
		{name: "astep too high", yaml: "sensor:\n  astep: 65535\n"},
		{name: "hidden capacity too high", yaml: "model:\n  hidden_capacity: 65\n"},
		{name: "negative hidden capacity", yaml: "model:\n  hidden_capacity: -4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := t.TempDir() + "/config.yaml"
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Sampling.Period = 125 * time.Millisecond

	path := t.TempDir() + "/saved.yaml"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 125*time.Millisecond, loaded.Sampling.Period)
	assert.Equal(t, cfg.Mock.Spectrum, loaded.Mock.Spectrum)
}

func TestValidate_RejectsValuesSetAfterLoad(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero period", mutate: func(c *Config) { c.Sampling.Period = 0 }},
		{name: "zero samples", mutate: func(c *Config) { c.Sampling.Samples = 0 }},
		{name: "zero hidden capacity", mutate: func(c *Config) { c.Model.HiddenCapacity = 0 }},
		{name: "unknown mode", mutate: func(c *Config) { c.Sampling.Mode = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
