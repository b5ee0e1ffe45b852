package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"backtest-reporter/internal/observation"
	"backtest-reporter/internal/recorder"
)

// Simulate produces a synthetic random-walk run through the recorder so the
// full pipeline can be exercised without a live strategy loop. One tick is
// one trading day.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	cfg := a.Config.Simulate
	ticks := resolve(opts.Ticks, cfg.Ticks)
	seed := cfg.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}

	runCtx := a.runContext()
	rec := recorder.New(runCtx, a.Config.Recorder.FlushThreshold, a.Logger)
	rng := rand.New(rand.NewSource(seed))

	cash := decimal.NewFromFloat(cfg.InitialCash)
	prices := make(map[string]float64, len(runCtx.Tickers))
	held := make(map[string]*holding, len(runCtx.Tickers))
	for i, ticker := range runCtx.Tickers {
		prices[ticker] = 50 + 10*float64(i)
	}

	start := time.Date(2024, time.January, 2, 16, 0, 0, 0, time.UTC)
	for tick := 0; tick < ticks; tick++ {
		dt := start.AddDate(0, 0, tick)

		rec.Observe(observation.CapitalSlice{DT: dt, Cash: cash, Debt: decimal.Zero})

		for _, ticker := range runCtx.Tickers {
			open := prices[ticker]
			drift := (rng.Float64() - 0.5) * 0.04
			close := open * (1 + drift)
			prices[ticker] = close
			closeDec := decimal.NewFromFloat(close)

			rec.Observe(observation.StockSlice{
				DT:     dt,
				Symbol: ticker,
				Open:   decimal.NewFromFloat(open),
				High:   decimal.NewFromFloat(max(open, close) * 1.01),
				Low:    decimal.NewFromFloat(min(open, close) * 0.99),
				Close:  closeDec,
				Volume: 1_000_000 + rng.Int63n(500_000),
			})

			if h := held[ticker]; h != nil {
				rec.Observe(observation.HoldingSlice{
					DT:        dt,
					Symbol:    ticker,
					NumShares: h.shares,
					BuyPrice:  h.buyPrice,
				})
				if tick-h.openedTick >= 10 {
					rec.Observe(observation.TradeAction{DT: dt, Symbol: ticker, Type: observation.ActionSell, NumShares: h.shares})
					cash = cash.Add(closeDec.Mul(decimal.NewFromInt(h.shares)))
					delete(held, ticker)
				}
			} else if drift < -0.01 {
				shares := int64(10)
				cost := closeDec.Mul(decimal.NewFromInt(shares))
				if cash.GreaterThan(cost) {
					rec.Observe(observation.TradeAction{DT: dt, Symbol: ticker, Type: observation.ActionBuy, NumShares: shares})
					cash = cash.Sub(cost)
					held[ticker] = &holding{shares: shares, buyPrice: closeDec, openedTick: tick}
				}
			}
		}

		rec.Pack()
	}

	if err := rec.Shutdown(); err != nil {
		return err
	}

	a.Logger.Info().
		Int("ticks", ticks).
		Int("state_rows", rec.FlushedRows(observation.KindState)).
		Int("trade_rows", rec.FlushedRows(observation.KindTrade)).
		Msg("synthetic run recorded")
	return nil
}

type holding struct {
	shares     int64
	buyPrice   decimal.Decimal
	openedTick int
}
