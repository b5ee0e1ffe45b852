package report

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"backtest-reporter/internal/observation"
	"backtest-reporter/internal/recorder"
)

var tick0 = time.Date(2024, time.February, 1, 16, 0, 0, 0, time.UTC)

func recordRun(t *testing.T, tickers []string) *observation.RunContext {
	t.Helper()
	ctx := observation.NewRunContext(t.TempDir(), "unit", "test", tickers)
	rec := recorder.New(ctx, 1000, zerolog.Nop())

	prices := []float64{100, 104, 98, 110, 95, 120}
	for i, price := range prices {
		dt := tick0.AddDate(0, 0, i)
		rec.Observe(observation.CapitalSlice{DT: dt, Cash: decimal.NewFromFloat(1000 - price)})
		for _, ticker := range tickers {
			rec.Observe(observation.StockSlice{
				DT:     dt,
				Symbol: ticker,
				Open:   decimal.NewFromFloat(price),
				High:   decimal.NewFromFloat(price + 2),
				Low:    decimal.NewFromFloat(price - 2),
				Close:  decimal.NewFromFloat(price),
				Volume: 500,
			})
			rec.Observe(observation.HoldingSlice{DT: dt, Symbol: ticker, NumShares: 1, BuyPrice: decimal.NewFromInt(100)})
		}
		rec.Pack()
	}
	rec.Observe(observation.TradeAction{DT: tick0, Symbol: tickers[0], Type: observation.ActionBuy, NumShares: 1})
	rec.Observe(observation.TradeAction{DT: tick0.AddDate(0, 0, 3), Symbol: tickers[0], Type: observation.ActionSell, NumShares: 1})
	rec.Pack()
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	return ctx
}

func TestEngineProducesMetricsDocument(t *testing.T) {
	ctx := recordRun(t, []string{"AAPL", "MSFT"})
	engine := New(ctx, 2, 0.02, zerolog.Nop())

	doc, err := engine.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	cumulative := doc.Metrics.Cumulative
	if cumulative["total_return_pct"] == nil {
		t.Fatalf("total_return_pct missing: %v", cumulative)
	}
	if _, ok := cumulative["_portfolio_value_series"]; ok {
		t.Fatalf("internal accumulator leaked into report")
	}
	if len(doc.Metrics.ByTicker) != 2 {
		t.Fatalf("by_ticker size = %d, want 2", len(doc.Metrics.ByTicker))
	}
	counts, ok := doc.Metrics.ByTicker["AAPL"]["trade_counts"].(map[string]int)
	if !ok || counts["buy"] != 1 || counts["sell"] != 1 {
		t.Fatalf("AAPL trade counts = %v", doc.Metrics.ByTicker["AAPL"]["trade_counts"])
	}
	if len(doc.UnavailableMetrics) != 5 {
		t.Fatalf("unavailable metrics = %d, want 5", len(doc.UnavailableMetrics))
	}
	if doc.Config.PageSize != 2 {
		t.Fatalf("config echo page size = %d, want 2", doc.Config.PageSize)
	}

	if _, err := os.Stat(ctx.ReportPath()); err != nil {
		t.Fatalf("report.json not written: %v", err)
	}
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	ctx := recordRun(t, []string{"AAPL"})

	run := func() []byte {
		engine := New(ctx, 3, 0.01, zerolog.Nop())
		if _, err := engine.Run(); err != nil {
			t.Fatalf("run: %v", err)
		}
		data, err := os.ReadFile(ctx.ReportPath())
		if err != nil {
			t.Fatalf("read report: %v", err)
		}
		return data
	}

	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Fatalf("report differs between identical runs")
	}
}

func TestEngineEmptyStreamsYieldNullMetrics(t *testing.T) {
	ctx := observation.NewRunContext(t.TempDir(), "unit", "test", []string{"AAPL"})
	engine := New(ctx, 10, 0, zerolog.Nop())

	doc, err := engine.Run()
	if err != nil {
		t.Fatalf("empty streams should not error: %v", err)
	}
	if doc.Metrics.Cumulative["total_return_pct"] != nil {
		t.Fatalf("total_return_pct = %v, want nil", doc.Metrics.Cumulative["total_return_pct"])
	}
	if doc.Metrics.Cumulative["sharpe_ratio"] != nil {
		t.Fatalf("sharpe_ratio = %v, want nil", doc.Metrics.Cumulative["sharpe_ratio"])
	}
	if doc.Metrics.Cumulative["avg_holding_period"] != nil {
		t.Fatalf("avg_holding_period = %v, want nil", doc.Metrics.Cumulative["avg_holding_period"])
	}
}
