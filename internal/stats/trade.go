package stats

import (
	"sort"
	"time"

	"backtest-reporter/internal/observation"
)

// TradeCount tallies trade observations by action kind.
type TradeCount struct {
	counts map[string]int
}

func NewTradeCount() *TradeCount { return &TradeCount{counts: make(map[string]int)} }

func (a *TradeCount) Name() string   { return "trade_counts" }
func (a *TradeCount) Internal() bool { return false }

func (a *TradeCount) Update(page *observation.Page) {
	for _, row := range page.Rows {
		if action := row.Value(colAction); action != "" {
			a.counts[action]++
		}
	}
}

func (a *TradeCount) Result() any { return a.counts }

// AvgHoldingPeriod pairs each sell with the oldest unmatched buy of the same
// ticker (strict FIFO) and averages the elapsed holding time. Buys still open
// at stream end are excluded from the average and reported as open positions.
type AvgHoldingPeriod struct {
	openBuys map[string][]time.Time

	totalHeld time.Duration
	matched   int
}

func NewAvgHoldingPeriod() *AvgHoldingPeriod {
	return &AvgHoldingPeriod{openBuys: make(map[string][]time.Time)}
}

func (a *AvgHoldingPeriod) Name() string   { return "avg_holding_period" }
func (a *AvgHoldingPeriod) Internal() bool { return false }

func (a *AvgHoldingPeriod) Update(page *observation.Page) {
	rows := make([]observation.Row, len(page.Rows))
	copy(rows, page.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DT.Before(rows[j].DT) })

	for _, row := range rows {
		switch observation.ActionType(row.Value(colAction)) {
		case observation.ActionBuy:
			a.openBuys[row.Ticker] = append(a.openBuys[row.Ticker], row.DT)
		case observation.ActionSell:
			queue := a.openBuys[row.Ticker]
			if len(queue) == 0 {
				continue
			}
			a.totalHeld += row.DT.Sub(queue[0])
			a.matched++
			a.openBuys[row.Ticker] = queue[1:]
		}
	}
}

func (a *AvgHoldingPeriod) Result() any {
	if a.matched == 0 {
		return nil
	}
	avg := a.totalHeld.Seconds() / float64(a.matched)
	return map[string]any{
		"hours":          round(avg/secondsPerHour, 2),
		"days":           round(avg/secondsPerDay, 2),
		"weeks":          round(avg/secondsPerWeek, 2),
		"open_positions": a.openPositions(),
	}
}

func (a *AvgHoldingPeriod) openPositions() int {
	open := 0
	for _, queue := range a.openBuys {
		open += len(queue)
	}
	return open
}
