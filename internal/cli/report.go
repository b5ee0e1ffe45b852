package cli

import (
	"github.com/spf13/cobra"

	"backtest-reporter/internal/app"
)

var reportPageSize int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the analytics pass over a recorded run and write report.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReportOptions{PageSize: reportPageSize}
		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportPageSize, "page-size", 0, "Rows per page while scanning streams (defaults to config)")
}
