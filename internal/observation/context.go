package observation

import (
	"path/filepath"
	"strconv"
)

// File names under a run's interim directory.
const (
	fileStateObs     = "state_obs.csv"
	fileStateObsMeta = "state_obs_meta.json"
	fileTradeObs     = "trade_obs.csv"
	fileTradeObsMeta = "trade_obs_meta.json"
	filePlotData     = "plot_data.csv"
	fileReport       = "report.json"
)

// RunContext holds the identity of one backtest run and every path and column
// layout derived from it. It is created once per run and passed by reference;
// there is no process-wide recorder state.
type RunContext struct {
	RunName      string
	StrategyName string
	Tickers      []string

	reportDir  string
	interimDir string
	columns    map[Kind][]string
}

// NewRunContext derives paths and per-kind column sets. The column set of a
// kind is dt, ticker, then each registered observable's prefixed fields, and
// is fixed for the life of the run.
func NewRunContext(outputDir, runName, strategyName string, tickers []string) *RunContext {
	ctx := &RunContext{
		RunName:      runName,
		StrategyName: strategyName,
		Tickers:      tickers,
	}
	ctx.reportDir = filepath.Join(outputDir, runName+"_"+strategyName)
	ctx.interimDir = filepath.Join(ctx.reportDir, "interim")

	ctx.columns = map[Kind][]string{
		KindState: columnsFor(StockSlice{}, CapitalSlice{}, HoldingSlice{}),
		KindTrade: columnsFor(TradeAction{}),
	}
	return ctx
}

func columnsFor(observables ...Observable) []string {
	cols := []string{FieldTimestamp, FieldTicker}
	for _, o := range observables {
		for _, f := range o.Fields() {
			cols = append(cols, PrefixedField(o.Prefix(), f))
		}
	}
	return cols
}

// PrefixedField namespaces a field by its source prefix. dt and ticker stay
// unprefixed so every sub-source resolves to the same column.
func PrefixedField(prefix, field string) string {
	if field == FieldTimestamp || field == FieldTicker {
		return field
	}
	return prefix + "_" + field
}

// Columns returns the fixed column set of a stream kind.
func (c *RunContext) Columns(kind Kind) []string { return c.columns[kind] }

// ReportDir is the root directory of this run's artifacts.
func (c *RunContext) ReportDir() string { return c.reportDir }

// InterimDir holds the persisted streams and the plot output.
func (c *RunContext) InterimDir() string { return c.interimDir }

// StreamPath returns the append-only CSV path of a kind.
func (c *RunContext) StreamPath(kind Kind) string {
	if kind == KindTrade {
		return filepath.Join(c.interimDir, fileTradeObs)
	}
	return filepath.Join(c.interimDir, fileStateObs)
}

// MetaPath returns the JSON metadata side-record path of a kind.
func (c *RunContext) MetaPath(kind Kind) string {
	if kind == KindTrade {
		return filepath.Join(c.interimDir, fileTradeObsMeta)
	}
	return filepath.Join(c.interimDir, fileStateObsMeta)
}

// PlotPath is the downsampled plot series output.
func (c *RunContext) PlotPath() string { return filepath.Join(c.interimDir, filePlotData) }

// ReportPath is the metrics document output.
func (c *RunContext) ReportPath() string { return filepath.Join(c.reportDir, fileReport) }

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }
