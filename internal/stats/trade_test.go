package stats

import (
	"testing"
	"time"

	"backtest-reporter/internal/observation"
)

func tradeRow(dt time.Time, ticker, action string) observation.Row {
	return observation.NewRow(dt, ticker, map[string]string{
		"dt":     dt.Format(observation.TimeLayout),
		"ticker": ticker,
		"a_type": action,
	})
}

func TestTradeCountByAction(t *testing.T) {
	tc := NewTradeCount()
	tc.Update(pageOf(
		tradeRow(t0, "AAPL", "buy"),
		tradeRow(t0.AddDate(0, 0, 1), "AAPL", "sell"),
		tradeRow(t0.AddDate(0, 0, 2), "MSFT", "buy"),
	))
	tc.Update(pageOf(tradeRow(t0.AddDate(0, 0, 3), "AAPL", "buy")))

	counts, ok := tc.Result().(map[string]int)
	if !ok {
		t.Fatalf("result = %v, want map", tc.Result())
	}
	if counts["buy"] != 3 || counts["sell"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestAvgHoldingPeriodStrictFIFO(t *testing.T) {
	// buy@t0, sell@t0+2d, buy@t0+1d, sell@t0+5d: FIFO pairs the first sell
	// with the first buy (2d) and the second sell with the second buy (4d).
	acc := NewAvgHoldingPeriod()
	acc.Update(pageOf(
		tradeRow(t0, "AAPL", "buy"),
		tradeRow(t0.AddDate(0, 0, 1), "AAPL", "buy"),
		tradeRow(t0.AddDate(0, 0, 2), "AAPL", "sell"),
		tradeRow(t0.AddDate(0, 0, 5), "AAPL", "sell"),
	))

	result, ok := acc.Result().(map[string]any)
	if !ok {
		t.Fatalf("result = %v, want map", acc.Result())
	}
	if result["days"] != 3.0 {
		t.Fatalf("avg days = %v, want 3", result["days"])
	}
	if result["hours"] != 72.0 {
		t.Fatalf("avg hours = %v, want 72", result["hours"])
	}
	if result["open_positions"] != 0 {
		t.Fatalf("open positions = %v, want 0", result["open_positions"])
	}
}

func TestAvgHoldingPeriodSortsWithinPage(t *testing.T) {
	// A page delivered out of chronological order must still match FIFO on
	// the time-sorted rows.
	acc := NewAvgHoldingPeriod()
	acc.Update(pageOf(
		tradeRow(t0.AddDate(0, 0, 2), "AAPL", "sell"),
		tradeRow(t0, "AAPL", "buy"),
	))

	result := acc.Result().(map[string]any)
	if result["days"] != 2.0 {
		t.Fatalf("avg days = %v, want 2", result["days"])
	}
}

func TestAvgHoldingPeriodUnmatchedBuys(t *testing.T) {
	acc := NewAvgHoldingPeriod()
	acc.Update(pageOf(
		tradeRow(t0, "AAPL", "buy"),
		tradeRow(t0.AddDate(0, 0, 1), "MSFT", "buy"),
		tradeRow(t0.AddDate(0, 0, 4), "AAPL", "sell"),
	))

	result := acc.Result().(map[string]any)
	if result["days"] != 4.0 {
		t.Fatalf("avg days = %v, want 4", result["days"])
	}
	if result["open_positions"] != 1 {
		t.Fatalf("open positions = %v, want 1", result["open_positions"])
	}
}

func TestAvgHoldingPeriodSellWithoutBuy(t *testing.T) {
	acc := NewAvgHoldingPeriod()
	acc.Update(pageOf(tradeRow(t0, "AAPL", "sell")))
	if acc.Result() != nil {
		t.Fatalf("unmatched sell should yield nil, got %v", acc.Result())
	}
}
