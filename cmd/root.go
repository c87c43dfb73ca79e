// Package cmd holds the gamescope-recorder command line interface.
package cmd

import "github.com/spf13/cobra"

// defaultDRMNode is the first render node on most single-GPU systems.
const defaultDRMNode = "/dev/dri/renderD128"

var rootCmd = &cobra.Command{
	Use:           "gamescope-recorder",
	Short:         "Record video through VA-API hardware H.264 encoding",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(newOneframeCmd())
	rootCmd.AddCommand(newRecordCmd())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
