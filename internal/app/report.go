package app

import (
	"context"

	"backtest-reporter/internal/report"
)

// Report runs the analytics pass over the persisted streams and writes
// report.json. It must only run after the recording run has shut down.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	runCtx := a.runContext()
	pageSize := resolve(opts.PageSize, a.Config.Loader.PageSize)

	engine := report.New(runCtx, pageSize, a.Config.Report.RiskFreeRateAnnual, a.Logger)
	doc, err := engine.Run()
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("cumulative_metrics", len(doc.Metrics.Cumulative)).
		Int("tickers", len(doc.Metrics.ByTicker)).
		Msg("analytics pass complete")
	return nil
}
