package recorder

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"backtest-reporter/internal/observation"
)

func testContext(t *testing.T, tickers ...string) *observation.RunContext {
	t.Helper()
	return observation.NewRunContext(t.TempDir(), "unit", "test", tickers)
}

func readStream(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return records
}

func column(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

var tick0 = time.Date(2024, time.June, 3, 16, 0, 0, 0, time.UTC)

func observeTick(rec *Recorder, dt time.Time, tickers []string, cash float64) {
	rec.Observe(observation.CapitalSlice{DT: dt, Cash: decimal.NewFromFloat(cash)})
	for _, ticker := range tickers {
		rec.Observe(observation.StockSlice{
			DT:     dt,
			Symbol: ticker,
			Open:   decimal.NewFromInt(10),
			High:   decimal.NewFromInt(11),
			Low:    decimal.NewFromInt(9),
			Close:  decimal.NewFromInt(10),
			Volume: 1000,
		})
	}
	rec.Pack()
}

func TestRecorderPackBroadcastsUnboundFields(t *testing.T) {
	ctx := testContext(t, "AAPL", "MSFT")
	rec := New(ctx, 100, zerolog.Nop())

	observeTick(rec, tick0, ctx.Tickers, 5000)
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	records := readStream(t, ctx.StreamPath(observation.KindState))
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}

	header := records[0]
	cashCol := column(header, "cap_cash")
	tickerCol := column(header, "ticker")
	if cashCol < 0 || tickerCol < 0 {
		t.Fatalf("header missing expected columns: %v", header)
	}
	for _, row := range records[1:] {
		if row[cashCol] != "5000" {
			t.Fatalf("cash not broadcast to ticker %s: %v", row[tickerCol], row)
		}
	}
}

func TestRecorderLastWriteWinsWithinTick(t *testing.T) {
	ctx := testContext(t, "AAPL")
	rec := New(ctx, 100, zerolog.Nop())

	rec.Observe(observation.CapitalSlice{DT: tick0, Cash: decimal.NewFromInt(100)})
	rec.Observe(observation.CapitalSlice{DT: tick0, Cash: decimal.NewFromInt(250)})
	rec.Pack()
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	records := readStream(t, ctx.StreamPath(observation.KindState))
	cashCol := column(records[0], "cap_cash")
	if records[1][cashCol] != "250" {
		t.Fatalf("cap_cash = %q, want last-written 250", records[1][cashCol])
	}
}

func TestRecorderHeaderWrittenOnce(t *testing.T) {
	ctx := testContext(t, "AAPL")
	rec := New(ctx, 2, zerolog.Nop())

	// Crosses the flush threshold twice, so the stream is appended to twice.
	for i := 0; i < 5; i++ {
		observeTick(rec, tick0.AddDate(0, 0, i), ctx.Tickers, 1000)
	}
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	records := readStream(t, ctx.StreamPath(observation.KindState))
	if len(records) != 6 {
		t.Fatalf("rows = %d, want header + 5", len(records))
	}
	headerSeen := 0
	for _, row := range records {
		if row[0] == observation.FieldTimestamp {
			headerSeen++
		}
	}
	if headerSeen != 1 {
		t.Fatalf("header written %d times, want once", headerSeen)
	}
}

func TestRecorderMetadataMatchesFlushedRows(t *testing.T) {
	ctx := testContext(t, "AAPL", "MSFT")
	rec := New(ctx, 3, zerolog.Nop())

	for i := 0; i < 7; i++ {
		observeTick(rec, tick0.AddDate(0, 0, i), ctx.Tickers, 1000)
	}
	rec.Observe(observation.TradeAction{DT: tick0, Symbol: "AAPL", Type: observation.ActionBuy, NumShares: 5})
	rec.Pack()
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	meta, err := observation.LoadMetadata(ctx.MetaPath(observation.KindState))
	if err != nil {
		t.Fatalf("load state metadata: %v", err)
	}
	if meta.NumRecords != 14 {
		t.Fatalf("state num_records = %d, want 14", meta.NumRecords)
	}
	if meta.NumTickers != 2 {
		t.Fatalf("num_tickers = %d, want 2", meta.NumTickers)
	}

	tradeMeta, err := observation.LoadMetadata(ctx.MetaPath(observation.KindTrade))
	if err != nil {
		t.Fatalf("load trade metadata: %v", err)
	}
	if tradeMeta.NumRecords != 1 {
		t.Fatalf("trade num_records = %d, want 1", tradeMeta.NumRecords)
	}
}

func TestRecorderTradeRowsOnlyForTradedTickers(t *testing.T) {
	ctx := testContext(t, "AAPL", "MSFT")
	rec := New(ctx, 100, zerolog.Nop())

	rec.Observe(observation.TradeAction{DT: tick0, Symbol: "MSFT", Type: observation.ActionSell, NumShares: 2})
	rec.Pack()
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	records := readStream(t, ctx.StreamPath(observation.KindTrade))
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(records))
	}
	tickerCol := column(records[0], "ticker")
	if records[1][tickerCol] != "MSFT" {
		t.Fatalf("trade row ticker = %q, want MSFT", records[1][tickerCol])
	}
}

func TestRecorderObserveIsSideEffectOnly(t *testing.T) {
	ctx := testContext(t, "AAPL")
	rec := New(ctx, 1, zerolog.Nop())

	rec.Observe(observation.CapitalSlice{DT: tick0, Cash: decimal.NewFromInt(1)})
	if _, err := os.Stat(ctx.StreamPath(observation.KindState)); !os.IsNotExist(err) {
		t.Fatalf("stream created before first flush")
	}
}
