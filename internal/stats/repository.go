package stats

// AccumulatorSet is one ordered collection of accumulators fed together.
type AccumulatorSet []Accumulator

// Results collects every non-internal accumulator's result keyed by name.
func (s AccumulatorSet) Results() map[string]any {
	out := make(map[string]any)
	for _, acc := range s {
		if !acc.Internal() {
			out[acc.Name()] = acc.Result()
		}
	}
	return out
}

// MetricRepository holds one accumulator set for the aggregate view plus a
// full parallel set per ticker. Sets are instantiated once per analytics pass
// and discarded after the scan.
type MetricRepository struct {
	Tickers []string

	State AccumulatorSet
	Trade AccumulatorSet

	StateByTicker map[string]AccumulatorSet
	TradeByTicker map[string]AccumulatorSet
}

// NewMetricRepository builds aggregate and per-ticker accumulator sets.
func NewMetricRepository(tickers []string, riskFreeRateAnnual float64) *MetricRepository {
	repo := &MetricRepository{
		Tickers:       tickers,
		State:         buildStateSet(riskFreeRateAnnual),
		Trade:         buildTradeSet(),
		StateByTicker: make(map[string]AccumulatorSet, len(tickers)),
		TradeByTicker: make(map[string]AccumulatorSet, len(tickers)),
	}
	for _, ticker := range tickers {
		repo.StateByTicker[ticker] = buildStateSet(riskFreeRateAnnual)
		repo.TradeByTicker[ticker] = buildTradeSet()
	}
	return repo
}

func buildStateSet(riskFreeRateAnnual float64) AccumulatorSet {
	pvSeries := NewPortfolioValueSeries()
	streaming := NewStreamingReturns(pvSeries, riskFreeRateAnnual)
	totalReturn := NewTotalReturn()
	drawdown := NewMaxDrawdown(pvSeries)

	return AccumulatorSet{
		pvSeries,
		totalReturn,
		streaming,
		NewSharpeRatio(streaming),
		NewSortinoRatio(streaming),
		NewVolatility(streaming),
		drawdown,
		NewCalmar(totalReturn, drawdown),
		NewExposureTime(),
		NewFinalPortfolio(),
		NewTradingPeriod(),
	}
}

func buildTradeSet() AccumulatorSet {
	return AccumulatorSet{
		NewTradeCount(),
		NewAvgHoldingPeriod(),
	}
}
