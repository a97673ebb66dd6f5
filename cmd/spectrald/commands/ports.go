package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/gospectral/pkg/sensor"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that may host the sensor bridge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := listPorts()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			fmt.Fprintln(out, "No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(out, p.Description)
		}
		return nil
	},
}

// listPorts is replaced in tests.
var listPorts = sensor.Ports
