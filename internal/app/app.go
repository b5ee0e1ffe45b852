package app

import (
	"github.com/rs/zerolog"

	"backtest-reporter/internal/config"
	"backtest-reporter/internal/observation"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// runContext derives the run's paths and column layouts from configuration.
func (a *App) runContext() *observation.RunContext {
	run := a.Config.Run
	return observation.NewRunContext(run.OutputDir, run.Name, run.Strategy, run.Tickers)
}

// ReportOptions hold parameters for the analytics pass.
type ReportOptions struct {
	PageSize int
}

// DownsampleOptions hold parameters for the plot reduction.
type DownsampleOptions struct {
	TargetPoints int
	ChunkSize    int
}

// SimulateOptions configure the synthetic run generator.
type SimulateOptions struct {
	Ticks int
	Seed  int64
}

func resolve(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}
