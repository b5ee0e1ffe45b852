// Package report orchestrates the paginated stream scan and metric
// accumulation, then serialises the result to report.json.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"backtest-reporter/internal/loader"
	"backtest-reporter/internal/observation"
	"backtest-reporter/internal/stats"
)

// UnavailableMetric declares a metric the persisted streams structurally
// cannot support, with the reason and the schema change that would enable it.
type UnavailableMetric struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
	Fix    string `json:"fix"`
}

// unavailableMetrics is advisory and static: these are declared, not computed.
var unavailableMetrics = []UnavailableMetric{
	{
		Metric: "alpha",
		Reason: "No benchmark price series available.",
		Fix:    "Add a benchmark_close column to state_obs.csv or provide benchmark_obs.csv.",
	},
	{
		Metric: "beta",
		Reason: "No benchmark price series available.",
		Fix:    "Same as alpha.",
	},
	{
		Metric: "information_ratio",
		Reason: "No benchmark returns to compare against.",
		Fix:    "Same as alpha.",
	},
	{
		Metric: "realized_pnl_per_trade",
		Reason: "trade_obs.csv carries no execution price; s_close is end-of-period and does not reflect the actual fill.",
		Fix:    "Add an a_price (fill price) column to trade_obs.csv.",
	},
	{
		Metric: "slippage_and_commission_costs",
		Reason: "No transaction cost data in either observation stream.",
		Fix:    "Add a_commission and a_slippage columns to trade_obs.csv.",
	},
}

// ConfigEcho reflects the analytics configuration back into the document.
type ConfigEcho struct {
	PageSize           int     `json:"page_size"`
	RiskFreeRateAnnual float64 `json:"risk_free_rate_annual"`
}

// Metrics groups the aggregate and per-ticker results.
type Metrics struct {
	Cumulative map[string]any            `json:"cumulative"`
	ByTicker   map[string]map[string]any `json:"by_ticker"`
}

// Document is the metrics report written once per analytics run.
type Document struct {
	Metrics            Metrics             `json:"metrics"`
	UnavailableMetrics []UnavailableMetric `json:"unavailable_metrics"`
	Config             ConfigEcho          `json:"config"`
}

// Engine drives one analytics pass: a single scan of each persisted stream,
// feeding the aggregate set and each ticker's filtered subset. Re-running
// over an unmodified stream reproduces identical output.
type Engine struct {
	ctx                *observation.RunContext
	pageSize           int
	riskFreeRateAnnual float64
	logger             zerolog.Logger
}

// New constructs the engine for one run context.
func New(ctx *observation.RunContext, pageSize int, riskFreeRateAnnual float64, logger zerolog.Logger) *Engine {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Engine{
		ctx:                ctx,
		pageSize:           pageSize,
		riskFreeRateAnnual: riskFreeRateAnnual,
		logger:             logger.With().Str("component", "report").Logger(),
	}
}

// Run executes the full pipeline and writes report.json, returning the
// assembled document. Missing streams yield null metrics, not an error.
func (e *Engine) Run() (*Document, error) {
	repo := stats.NewMetricRepository(e.ctx.Tickers, e.riskFreeRateAnnual)

	e.logger.Info().Msg("processing state observations")
	if err := e.scan(observation.KindState, repo.State, repo.StateByTicker); err != nil {
		return nil, err
	}

	e.logger.Info().Msg("processing trade observations")
	if err := e.scan(observation.KindTrade, repo.Trade, repo.TradeByTicker); err != nil {
		return nil, err
	}

	doc := e.assemble(repo)
	if err := e.write(doc); err != nil {
		return nil, err
	}
	e.logger.Info().Str("path", e.ctx.ReportPath()).Msg("report written")
	return doc, nil
}

func (e *Engine) scan(kind observation.Kind, aggregate stats.AccumulatorSet, byTicker map[string]stats.AccumulatorSet) error {
	l := loader.New(e.ctx, kind, e.pageSize, e.logger)
	pages := 0
	return l.ForEachPage(func(page *observation.Page) error {
		pages++
		e.logger.Debug().Str("kind", string(kind)).Int("page", pages).Int("rows", len(page.Rows)).Msg("accumulating page")
		for _, acc := range aggregate {
			acc.Update(page)
		}
		for _, ticker := range e.ctx.Tickers {
			subset := page.FilterTicker(ticker)
			if subset.Empty() {
				continue
			}
			for _, acc := range byTicker[ticker] {
				acc.Update(subset)
			}
		}
		return nil
	})
}

func (e *Engine) assemble(repo *stats.MetricRepository) *Document {
	cumulative := repo.State.Results()
	for name, value := range repo.Trade.Results() {
		cumulative[name] = value
	}

	byTicker := make(map[string]map[string]any, len(repo.Tickers))
	for _, ticker := range repo.Tickers {
		results := repo.StateByTicker[ticker].Results()
		for name, value := range repo.TradeByTicker[ticker].Results() {
			results[name] = value
		}
		byTicker[ticker] = results
	}

	return &Document{
		Metrics:            Metrics{Cumulative: cumulative, ByTicker: byTicker},
		UnavailableMetrics: unavailableMetrics,
		Config: ConfigEcho{
			PageSize:           e.pageSize,
			RiskFreeRateAnnual: e.riskFreeRateAnnual,
		},
	}
}

func (e *Engine) write(doc *Document) error {
	path := e.ctx.ReportPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
