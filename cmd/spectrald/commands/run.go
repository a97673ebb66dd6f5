package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/itohio/gospectral/pkg/config"
	"github.com/itohio/gospectral/pkg/logger"
	"github.com/itohio/gospectral/pkg/report"
	"github.com/itohio/gospectral/pkg/sensor"
	"github.com/itohio/gospectral/pkg/spectro"
)

var runFlags struct {
	port     string
	output   string
	mock     bool
	mode     string
	samples  int
	model    string
	metrics  bool
	logLevel string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample the sensor and stream records until interrupted",
	Long: `Starts the sensor, then runs one sampling pass per period. In read mode
each pass prints the averaged channel counts as JSON; in classify mode it
prints the predicted class. Operator commands (1 and 0 switch the LED,
RATE:<hz>, MODE:READ, MODE:CLASSIFY, SAMPLE) are accepted one per line on
stdin, or on the output serial port when --output is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		log, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runDaemon(ctx, cfg, runFlags.mock, cmd.InOrStdin(), cmd.OutOrStdout(), log)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.port, "port", "p", "", "Sensor bridge serial port (overrides config)")
	f.StringVarP(&runFlags.output, "output", "o", "", "Serial port for records and commands (default: stdout/stdin)")
	f.BoolVar(&runFlags.mock, "mock", false, "Use the simulated sensor instead of the bridge")
	f.StringVar(&runFlags.mode, "mode", "", "Record mode: read or classify (overrides config)")
	f.IntVarP(&runFlags.samples, "samples", "n", 0, "Reads averaged per pass, 1-255 (overrides config)")
	f.StringVarP(&runFlags.model, "model", "m", "", "Model table file (default: built-in model)")
	f.BoolVar(&runFlags.metrics, "metrics", false, "Serve Prometheus metrics (address from config)")
	f.StringVar(&runFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// applyRunFlags overrides configuration with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = runFlags.port
	}
	if flags.Changed("output") {
		cfg.Output.Port = runFlags.output
	}
	if flags.Changed("mode") {
		cfg.Sampling.Mode = runFlags.mode
	}
	if flags.Changed("samples") {
		cfg.Sampling.Samples = runFlags.samples
	}
	if flags.Changed("model") {
		cfg.Model.Path = runFlags.model
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = runFlags.metrics
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = runFlags.logLevel
	}
	return cfg.Validate()
}

// runDaemon wires the sensor, model and output stream into a controller and
// runs it until ctx is done. in and out are used when no output port is set.
func runDaemon(ctx context.Context, cfg *config.Config, useMock bool, in io.Reader, out io.Writer, log *zap.SugaredLogger) error {
	_, model, err := loadModel(cfg.Model)
	if err != nil {
		return err
	}

	var dev sensor.Sensor
	if useMock {
		dev = sensor.NewMock(&cfg.Mock)
		log.Infow("using simulated sensor")
	} else {
		dev = sensor.NewSerial(cfg.Serial, log)
	}
	defer dev.Close()

	if cfg.Output.Port != "" {
		port, err := serial.Open(cfg.Output.Port, &serial.Mode{BaudRate: cfg.Output.BaudRate})
		if err != nil {
			return fmt.Errorf("failed to open output port %s: %w", cfg.Output.Port, err)
		}
		// Closing the port also unblocks the command reader.
		defer port.Close()
		in, out = port, port
		log.Infow("records routed to serial port", "port", cfg.Output.Port, "baud", cfg.Output.BaudRate)
	}

	opts := []spectro.Option{spectro.WithLogger(log)}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = newRegistry()
		opts = append(opts, spectro.WithRegisterer(reg))
	}

	ctrl, err := spectro.New(cfg, dev, model, report.New(out), opts...)
	if err != nil {
		return err
	}
	if err := ctrl.Start(); err != nil {
		log.Errorw("sensor initialization failed", "error", err)
		return err
	}

	if reg != nil {
		srv := newMetricsServer(cfg.Metrics.Addr, reg, log)
		srv.Start()
		defer srv.Stop()
	}

	err = ctrl.Run(ctx, readCommands(ctx, in))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Infow("shutting down")
		return nil
	}
	return err
}

// readCommands forwards input lines until EOF or ctx is done, then closes
// the channel. A Read already blocked in r is not interrupted by ctx: the
// goroutine exits when that Read returns. runDaemon closes the output
// serial port on return, which ends such a Read; a blocked stdin is only
// released at process exit.
func readCommands(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for ctx.Err() == nil && scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
