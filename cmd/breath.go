package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evpack/core/breath"
)

var (
	breathPressure float64
	breathDelta    float64
	breathDuration float64
)

var breathCmd = &cobra.Command{
	Use:   "breath",
	Short: "Run one breath cycle and print the restored snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := breath.New(breathPressure).Cycle(breathDelta, breathDuration)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	breathCmd.Flags().Float64Var(&breathPressure, "pressure", 1.0, "initial pressure")
	breathCmd.Flags().Float64Var(&breathDelta, "delta", 0.1, "inhale/exhale delta")
	breathCmd.Flags().Float64Var(&breathDuration, "duration", 1.0, "hold duration")
	rootCmd.AddCommand(breathCmd)
}
