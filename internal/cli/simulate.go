package cli

import (
	"github.com/spf13/cobra"

	"backtest-reporter/internal/app"
)

var (
	simulateTicks int
	simulateSeed  int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Record a synthetic random-walk run to exercise the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{Ticks: simulateTicks, Seed: simulateSeed}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateTicks, "ticks", 0, "Number of ticks to simulate (defaults to config)")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 0, "Random seed (defaults to config)")
}
