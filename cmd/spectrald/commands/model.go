package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itohio/gospectral/pkg/config"
	"github.com/itohio/gospectral/pkg/feature"
	"github.com/itohio/gospectral/pkg/nn"
	"github.com/itohio/gospectral/pkg/report"
	"github.com/itohio/gospectral/pkg/sample"
	"github.com/itohio/gospectral/pkg/sensor"
)

var modelFlags struct {
	path    string
	reading string
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the classifier model or classify one reading offline",
	Long: `Prints the classifier topology and class names. With --reading, the
comma-separated channel counts are normalized and classified exactly as the
daemon would, and the prediction record is printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if modelFlags.path != "" {
			cfg.Model.Path = modelFlags.path
		}

		table, m, err := loadModel(cfg.Model)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if modelFlags.reading == "" {
			name := table.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(out, "Model: %s\n", name)
			fmt.Fprintf(out, "Topology: %d-%d-%d (capacity %d)\n", m.Inputs(), m.Hidden(), m.Outputs(), cfg.Model.HiddenCapacity)
			names := make([]string, m.Outputs())
			for i := range names {
				names[i] = m.ClassName(i)
			}
			fmt.Fprintf(out, "Classes: %s\n", strings.Join(names, " "))
			return nil
		}

		raw, err := sensor.ParseChannels(modelFlags.reading)
		if err != nil {
			return fmt.Errorf("invalid --reading: %w", err)
		}
		v := feature.FromReading(sample.Reading{Channels: raw})
		return report.New(out).EmitPrediction(m.Classify(v[:]))
	},
}

func init() {
	modelCmd.Flags().StringVarP(&modelFlags.path, "model", "m", "", "Model table file (default: built-in model)")
	modelCmd.Flags().StringVarP(&modelFlags.reading, "reading", "r", "", "Channel counts to classify, e.g. 812,1490,...,9120")
}

// loadModel returns the configured model table and the model built from it.
func loadModel(cfg config.ModelConfig) (*nn.Table, nn.Model, error) {
	var (
		table *nn.Table
		err   error
	)
	if cfg.Path == "" {
		table, err = nn.DefaultTable()
	} else {
		table, err = nn.LoadTable(cfg.Path)
	}
	if err != nil {
		return nil, nn.Model{}, err
	}

	m, err := table.Model(cfg.HiddenCapacity)
	if err != nil {
		return nil, nn.Model{}, fmt.Errorf("failed to build model: %w", err)
	}
	return table, m, nil
}
