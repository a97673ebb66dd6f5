package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/itohio/gospectral/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_Stderr(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.True(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FileRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "spectrald.log")

	log, err := New(config.LoggingConfig{Level: "info", Path: path, MaxSize: 1})
	require.NoError(t, err)

	log.Infow("hello", "channel", "410nm")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "410nm")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotNil(t, log)
	log.Infof("discarded %d", 1)
}
