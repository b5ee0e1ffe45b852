package plot

import (
	"encoding/csv"
	"math"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"backtest-reporter/internal/observation"
	"backtest-reporter/internal/recorder"
)

var tick0 = time.Date(2024, time.January, 2, 16, 0, 0, 0, time.UTC)

func recordWave(t *testing.T, rows int, tradeTicks ...int) *observation.RunContext {
	t.Helper()
	ctx := observation.NewRunContext(t.TempDir(), "unit", "test", []string{"AAPL"})
	rec := recorder.New(ctx, 5000, zerolog.Nop())

	trades := make(map[int]bool, len(tradeTicks))
	for _, tick := range tradeTicks {
		trades[tick] = true
	}

	for i := 0; i < rows; i++ {
		dt := tick0.Add(time.Duration(i) * time.Hour)
		price := 100 + 20*math.Sin(float64(i)/50)
		rec.Observe(observation.CapitalSlice{DT: dt, Cash: decimal.NewFromInt(1000)})
		rec.Observe(observation.StockSlice{
			DT:     dt,
			Symbol: "AAPL",
			Open:   decimal.NewFromFloat(price),
			High:   decimal.NewFromFloat(price + 1),
			Low:    decimal.NewFromFloat(price - 1),
			Close:  decimal.NewFromFloat(price),
			Volume: 1000,
		})
		if trades[i] {
			rec.Observe(observation.TradeAction{DT: dt, Symbol: "AAPL", Type: observation.ActionBuy, NumShares: 1})
		}
		rec.Pack()
	}
	if err := rec.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	return ctx
}

func readPlot(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open plot data: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read plot data: %v", err)
	}
	return records
}

func TestDownsamplerKeepsMandatoryPoints(t *testing.T) {
	const rows, target = 10000, 500
	tradeTick := 7000
	ctx := recordWave(t, rows, tradeTick)

	d := New(ctx, target, 3000, zerolog.Nop())
	path, err := d.Run()
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}

	records := readPlot(t, path)
	if len(records)-1 > target {
		t.Fatalf("output rows = %d, exceeds target %d", len(records)-1, target)
	}

	want := map[string]bool{
		tick0.Format(observation.TimeLayout):                                           false,
		tick0.Add(time.Duration(rows-1) * time.Hour).Format(observation.TimeLayout):    false,
		tick0.Add(time.Duration(tradeTick) * time.Hour).Format(observation.TimeLayout): false,
	}
	for _, row := range records[1:] {
		if _, ok := want[row[0]]; ok {
			want[row[0]] = true
		}
	}
	for ts, seen := range want {
		if !seen {
			t.Fatalf("mandatory point %s missing from output", ts)
		}
	}
}

func TestDownsamplerSmallSeriesKeptWhole(t *testing.T) {
	ctx := recordWave(t, 20)
	d := New(ctx, 500, 1000, zerolog.Nop())
	path, err := d.Run()
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}

	records := readPlot(t, path)
	if len(records)-1 != 20 {
		t.Fatalf("output rows = %d, want all 20", len(records)-1)
	}
	header := records[0]
	if header[0] != "dt" || header[1] != "ticker" || header[2] != "s_close" {
		t.Fatalf("header = %v", header)
	}
}

func TestDownsamplerMissingStateStream(t *testing.T) {
	ctx := observation.NewRunContext(t.TempDir(), "unit", "test", []string{"AAPL"})
	d := New(ctx, 100, 1000, zerolog.Nop())
	path, err := d.Run()
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("missing stream should produce empty output, got %q", data)
	}
}

func TestLTTBDegenerateCases(t *testing.T) {
	values := []float64{1, 2, 3}
	if got := lttbIndices(values, 5); len(got) != 3 {
		t.Fatalf("series shorter than target should keep all points, got %v", got)
	}
	if got := lttbIndices(values, 2); len(got) != 3 {
		t.Fatalf("target <= 2 keeps the subset whole, got %v", got)
	}
}

func TestLTTBSelectsLargestTriangle(t *testing.T) {
	// The spike at index 2 dominates the single interior bucket.
	values := []float64{0, 0, 100, 0, 0}
	got := lttbIndices(values, 3)
	if len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("selected = %v, want [0 2 4]", got)
	}
}
