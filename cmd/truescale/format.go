package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SomeOppaiBoy/true-scale/pkg/units"
)

var formatImperial bool

var formatCmd = &cobra.Command{
	Use:   "format <length|area|volume> <value>",
	Short: "Render an SI quantity the way the app displays it",
	Long: `Format a length in meters, an area in square meters or a volume in cubic
meters with the app's unit rules, in metric or imperial.`,
	Example: `  truescale format length 1.5
  truescale format volume 0.01 --imperial`,
	Args: cobra.ExactArgs(2),
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)

	formatCmd.Flags().BoolVar(&formatImperial, "imperial", false, "Use imperial units")
}

func runFormat(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	system := units.SystemFor(!formatImperial)
	var text string
	switch args[0] {
	case "length":
		text = units.FormatLength(float32(value), system)
	case "area":
		text = units.FormatArea(float32(value), system)
	case "volume":
		text = units.FormatVolume(float32(value), system)
	default:
		return fmt.Errorf("unknown quantity %q (valid: length, area, volume)", args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
