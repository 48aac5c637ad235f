package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SomeOppaiBoy/true-scale/version"
)

var rootCmd = &cobra.Command{
	Use:   "truescale",
	Short: "Replay and inspect AR tape-measure sessions",
	Long: `truescale drives the AR measurement engine from scripted scene files.
It replays taps, frame ticks and mode changes against a simulated AR runtime
and prints every outcome with the readings the app would show.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
