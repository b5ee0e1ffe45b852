package stats

import (
	"math"
	"time"

	"backtest-reporter/internal/observation"
)

// PortfolioValueSeries maps each observed timestamp to the maximum portfolio
// value across tickers at that instant. Memory is bounded by the number of
// distinct timestamps. Internal: it feeds drawdown, not the report.
type PortfolioValueSeries struct {
	byTime map[time.Time]float64
}

func NewPortfolioValueSeries() *PortfolioValueSeries {
	return &PortfolioValueSeries{byTime: make(map[time.Time]float64)}
}

func (a *PortfolioValueSeries) Name() string   { return "_portfolio_value_series" }
func (a *PortfolioValueSeries) Internal() bool { return true }

func (a *PortfolioValueSeries) Update(page *observation.Page) {
	for _, row := range page.Rows {
		pv := portfolioValue(row)
		if current, ok := a.byTime[row.DT]; !ok || pv > current {
			a.byTime[row.DT] = pv
		}
	}
}

// Series returns the accumulated values sorted by time.
func (a *PortfolioValueSeries) Series() []timePoint {
	points := make([]timePoint, 0, len(a.byTime))
	for ts, pv := range a.byTime {
		points = append(points, timePoint{ts: ts, value: pv})
	}
	sortByTime(points)
	return points
}

func (a *PortfolioValueSeries) Result() any {
	series := a.Series()
	if len(series) == 0 {
		return map[string]any{"num_observations": 0}
	}
	return map[string]any{
		"num_observations": len(series),
		"start":            series[0].ts.Format(observation.TimeLayout),
		"end":              series[len(series)-1].ts.Format(observation.TimeLayout),
	}
}

// TotalReturn keeps only the earliest- and latest-timestamped portfolio
// values, whatever order the pages arrive in.
type TotalReturn struct {
	first *timePoint
	last  *timePoint
}

func NewTotalReturn() *TotalReturn { return &TotalReturn{} }

func (a *TotalReturn) Name() string   { return "total_return_pct" }
func (a *TotalReturn) Internal() bool { return false }

func (a *TotalReturn) Update(page *observation.Page) {
	for _, row := range page.Rows {
		point := timePoint{ts: row.DT, value: portfolioValue(row)}
		if a.first == nil || point.ts.Before(a.first.ts) {
			p := point
			a.first = &p
		}
		if a.last == nil || point.ts.After(a.last.ts) {
			p := point
			a.last = &p
		}
	}
}

func (a *TotalReturn) Result() any {
	v := a.Value()
	if v == nil {
		return nil
	}
	return *v
}

// Value exposes the raw metric for composition (Calmar).
func (a *TotalReturn) Value() *float64 {
	if a.first == nil || a.last == nil || a.first.value == 0 {
		return nil
	}
	v := round((a.last.value-a.first.value)/a.first.value*100, 4)
	return &v
}

// StreamingReturns derives sequential period returns from the shared
// portfolio value series and feeds them to two Welford accumulators: all
// returns, and the negative subset used by Sortino. Reading the series
// through its timestamp-keyed map keeps the derived returns independent of
// how rows were split into pages. The per-period risk-free rate and the
// annualization factor are inferred from elapsed calendar time, not from an
// assumed bar frequency. Internal: reported through its ratio wrappers.
type StreamingReturns struct {
	src      *PortfolioValueSeries
	rfAnnual float64

	finalized bool

	all      Welford
	downside Welford

	numReturns int
	start      time.Time
	end        time.Time
}

func NewStreamingReturns(src *PortfolioValueSeries, riskFreeRateAnnual float64) *StreamingReturns {
	return &StreamingReturns{src: src, rfAnnual: riskFreeRateAnnual}
}

func (a *StreamingReturns) Name() string                  { return "_streaming_returns_stats" }
func (a *StreamingReturns) Internal() bool                { return true }
func (a *StreamingReturns) Update(page *observation.Page) {}

// finalize computes sequential returns once, on first metric access.
func (a *StreamingReturns) finalize() {
	if a.finalized {
		return
	}
	a.finalized = true

	points := a.src.Series()
	if len(points) < 2 {
		return
	}
	a.start = points[0].ts
	a.end = points[len(points)-1].ts

	for i := 1; i < len(points); i++ {
		prev := points[i-1].value
		curr := points[i].value
		if prev <= 0 {
			continue
		}
		ret := (curr - prev) / prev
		a.all.Add(ret)
		a.numReturns++
		if ret < 0 {
			a.downside.Add(ret)
		}
	}
}

func (a *StreamingReturns) elapsedDays() int {
	return int(a.end.Sub(a.start).Hours() / 24)
}

func (a *StreamingReturns) periodsPerYear() float64 {
	days := a.elapsedDays()
	if days == 0 || a.numReturns < 2 {
		return 0
	}
	return float64(a.numReturns) / float64(days) * 365.25
}

// AnnualizationFactor is sqrt(periods per year), floored at 1, or 1 when the
// series is too short to infer a cadence.
func (a *StreamingReturns) AnnualizationFactor() float64 {
	a.finalize()
	ppy := a.periodsPerYear()
	if ppy == 0 {
		return 1
	}
	return math.Sqrt(math.Max(1, ppy))
}

func (a *StreamingReturns) riskFreePerPeriod() float64 {
	ppy := a.periodsPerYear()
	if ppy == 0 {
		return 0
	}
	return a.rfAnnual / ppy
}

// Sharpe is annualized excess return over total volatility.
func (a *StreamingReturns) Sharpe() *float64 {
	a.finalize()
	if a.all.Count == 0 || a.all.Std() == 0 {
		return nil
	}
	excess := a.all.Mean - a.riskFreePerPeriod()
	v := round(excess/a.all.Std()*a.AnnualizationFactor(), 4)
	return &v
}

// Sortino is annualized excess return over downside volatility only.
func (a *StreamingReturns) Sortino() *float64 {
	a.finalize()
	if a.downside.Count == 0 || a.downside.Std() == 0 {
		return nil
	}
	excess := a.all.Mean - a.riskFreePerPeriod()
	v := round(excess/a.downside.Std()*a.AnnualizationFactor(), 4)
	return &v
}

// Volatility is the annualized standard deviation of period returns, in %.
func (a *StreamingReturns) Volatility() *float64 {
	a.finalize()
	if a.all.Count == 0 {
		return nil
	}
	v := round(a.all.Std()*a.AnnualizationFactor()*100, 4)
	return &v
}

func (a *StreamingReturns) Result() any {
	return map[string]any{
		"sharpe":               deref(a.Sharpe()),
		"sortino":              deref(a.Sortino()),
		"volatility":           deref(a.Volatility()),
		"annualization_factor": round(a.AnnualizationFactor(), 2),
		"num_return_periods":   a.numReturns,
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// SharpeRatio reports the Sharpe metric computed by a shared StreamingReturns.
type SharpeRatio struct{ src *StreamingReturns }

func NewSharpeRatio(src *StreamingReturns) *SharpeRatio { return &SharpeRatio{src: src} }

func (a *SharpeRatio) Name() string                  { return "sharpe_ratio" }
func (a *SharpeRatio) Internal() bool                { return false }
func (a *SharpeRatio) Update(page *observation.Page) {}
func (a *SharpeRatio) Result() any                   { return deref(a.src.Sharpe()) }

// SortinoRatio reports the Sortino metric computed by a shared StreamingReturns.
type SortinoRatio struct{ src *StreamingReturns }

func NewSortinoRatio(src *StreamingReturns) *SortinoRatio { return &SortinoRatio{src: src} }

func (a *SortinoRatio) Name() string                  { return "sortino_ratio" }
func (a *SortinoRatio) Internal() bool                { return false }
func (a *SortinoRatio) Update(page *observation.Page) {}
func (a *SortinoRatio) Result() any                   { return deref(a.src.Sortino()) }

// Volatility reports annualized volatility computed by a shared StreamingReturns.
type Volatility struct{ src *StreamingReturns }

func NewVolatility(src *StreamingReturns) *Volatility { return &Volatility{src: src} }

func (a *Volatility) Name() string                  { return "annualised_volatility_pct" }
func (a *Volatility) Internal() bool                { return false }
func (a *Volatility) Update(page *observation.Page) {}
func (a *Volatility) Result() any                   { return deref(a.src.Volatility()) }

// MaxDrawdown is the deepest percentage decline from a running peak of the
// time-sorted portfolio value series.
type MaxDrawdown struct{ src *PortfolioValueSeries }

func NewMaxDrawdown(src *PortfolioValueSeries) *MaxDrawdown { return &MaxDrawdown{src: src} }

func (a *MaxDrawdown) Name() string                  { return "max_drawdown_pct" }
func (a *MaxDrawdown) Internal() bool                { return false }
func (a *MaxDrawdown) Update(page *observation.Page) {}

func (a *MaxDrawdown) Result() any {
	v := a.Value()
	if v == nil {
		return nil
	}
	return *v
}

func (a *MaxDrawdown) Value() *float64 {
	series := a.src.Series()
	if len(series) == 0 {
		return nil
	}
	peak := series[0].value
	worst := 0.0
	for _, point := range series {
		if point.value > peak {
			peak = point.value
		}
		if peak > 0 {
			dd := (point.value - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	v := round(worst*100, 4)
	return &v
}

// Calmar is total return over the absolute max drawdown.
type Calmar struct {
	totalReturn *TotalReturn
	drawdown    *MaxDrawdown
}

func NewCalmar(tr *TotalReturn, dd *MaxDrawdown) *Calmar {
	return &Calmar{totalReturn: tr, drawdown: dd}
}

func (a *Calmar) Name() string                  { return "calmar_ratio" }
func (a *Calmar) Internal() bool                { return false }
func (a *Calmar) Update(page *observation.Page) {}

func (a *Calmar) Result() any {
	tr := a.totalReturn.Value()
	dd := a.drawdown.Value()
	if tr == nil || dd == nil || *dd == 0 {
		return nil
	}
	return round(*tr/math.Abs(*dd), 4)
}

// ExposureTime is the fraction of rows holding a non-zero position, in %.
type ExposureTime struct {
	total   int
	exposed int
}

func NewExposureTime() *ExposureTime { return &ExposureTime{} }

func (a *ExposureTime) Name() string   { return "exposure_time_pct" }
func (a *ExposureTime) Internal() bool { return false }

func (a *ExposureTime) Update(page *observation.Page) {
	for _, row := range page.Rows {
		a.total++
		if row.FloatOrZero(colNumShares) > 0 {
			a.exposed++
		}
	}
}

func (a *ExposureTime) Result() any {
	if a.total == 0 {
		return nil
	}
	return round(float64(a.exposed)/float64(a.total)*100, 4)
}

// TradingPeriod tracks the running min/max timestamp of the stream.
type TradingPeriod struct {
	start *time.Time
	end   *time.Time
}

func NewTradingPeriod() *TradingPeriod { return &TradingPeriod{} }

func (a *TradingPeriod) Name() string   { return "trading_period" }
func (a *TradingPeriod) Internal() bool { return false }

func (a *TradingPeriod) Update(page *observation.Page) {
	for _, row := range page.Rows {
		ts := row.DT
		if a.start == nil || ts.Before(*a.start) {
			t := ts
			a.start = &t
		}
		if a.end == nil || ts.After(*a.end) {
			t := ts
			a.end = &t
		}
	}
}

func (a *TradingPeriod) Result() any {
	if a.start == nil || a.end == nil {
		return map[string]any{}
	}
	seconds := a.end.Sub(*a.start).Seconds()
	return map[string]any{
		"start":          a.start.Format(observation.TimeLayout),
		"end":            a.end.Format(observation.TimeLayout),
		"duration_hours": round(seconds/secondsPerHour, 2),
		"duration_days":  round(seconds/secondsPerDay, 2),
		"duration_weeks": round(seconds/secondsPerWeek, 2),
	}
}

// FinalPortfolio retains the most recent non-empty page and reports the last
// row's derived values. Correct only when pages arrive in append order.
type FinalPortfolio struct {
	lastPage *observation.Page
}

func NewFinalPortfolio() *FinalPortfolio { return &FinalPortfolio{} }

func (a *FinalPortfolio) Name() string   { return "final_portfolio" }
func (a *FinalPortfolio) Internal() bool { return false }

func (a *FinalPortfolio) Update(page *observation.Page) {
	if page.Empty() {
		return
	}
	copied := &observation.Page{Rows: make([]observation.Row, len(page.Rows))}
	copy(copied.Rows, page.Rows)
	a.lastPage = copied
}

func (a *FinalPortfolio) Result() any {
	if a.lastPage == nil {
		return nil
	}

	last := a.lastPage.Rows[0]
	for _, row := range a.lastPage.Rows[1:] {
		if !row.DT.Before(last.DT) {
			last = row
		}
	}

	cash := last.FloatOrZero(colCash)
	equity := last.FloatOrZero(colNumShares) * last.FloatOrZero(colClose)
	return map[string]any{
		"cash":         round(cash, 4),
		"equity_value": round(equity, 4),
		"total_value":  round(cash+equity, 4),
	}
}
