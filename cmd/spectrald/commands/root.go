// Package commands implements the spectrald command line.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/gospectral/pkg/config"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "config.yaml"

var configPath string

// RootCmd is the spectrald entry point.
var RootCmd = &cobra.Command{
	Use:   "spectrald",
	Short: "Spectral sensor sampling and colour classification daemon",
	Long: `spectrald samples a 12-channel AS7341 spectral sensor, averages the
readings and either streams raw channel counts or classifies each reading
with a small neural network. Records are written one per line to stdout or
a serial port; operator commands are read from the same stream.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "Path to configuration file")

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(portsCmd)
	RootCmd.AddCommand(modelCmd)
	RootCmd.AddCommand(configCmd)
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
