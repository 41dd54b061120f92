package main

import (
	"fmt"
	"os"

	"github.com/notargets/flowmodes/logging"
	"github.com/spf13/cobra"
)

var debug bool

// rootCmd is the base command for the flowmodes CLI
var rootCmd = &cobra.Command{
	Use:   "flowmodes",
	Short: "POD and DMD modal decomposition of sampled flow fields",
	Long: `flowmodes decomposes time series of sampled flow surfaces (OpenFOAM
foamFile tables) into Proper Orthogonal Decomposition or Dynamic Mode
Decomposition modes and archives the results.

Examples:
  flowmodes pod --config wake_pod.yaml
  flowmodes dmd --config wake_dmd.yaml --config plane_dmd.yaml --workers 4
  flowmodes spectrum --archive wake_dmd.msgpack --band 10,200`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
