package app

import (
	"context"

	"backtest-reporter/internal/plot"
)

// Downsample reduces the persisted state stream to a plot-ready series.
func (a *App) Downsample(ctx context.Context, opts DownsampleOptions) error {
	runCtx := a.runContext()
	target := resolve(opts.TargetPoints, a.Config.Plot.TargetPoints)
	chunk := resolve(opts.ChunkSize, a.Config.Plot.ChunkSize)

	d := plot.New(runCtx, target, chunk, a.Logger)
	path, err := d.Run()
	if err != nil {
		return err
	}

	a.Logger.Info().Str("path", path).Msg("plot data written")
	return nil
}
