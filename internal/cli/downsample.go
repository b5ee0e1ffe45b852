package cli

import (
	"github.com/spf13/cobra"

	"backtest-reporter/internal/app"
)

var (
	downsampleTarget int
	downsampleChunk  int
)

var downsampleCmd = &cobra.Command{
	Use:   "downsample",
	Short: "Reduce the recorded state stream to a plot-ready series",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.DownsampleOptions{
			TargetPoints: downsampleTarget,
			ChunkSize:    downsampleChunk,
		}
		return getApp().Downsample(cmd.Context(), opts)
	},
}

func init() {
	downsampleCmd.Flags().IntVar(&downsampleTarget, "target-points", 0, "Maximum points to retain (defaults to config)")
	downsampleCmd.Flags().IntVar(&downsampleChunk, "chunk-size", 0, "Rows processed per chunk (defaults to config)")
}
