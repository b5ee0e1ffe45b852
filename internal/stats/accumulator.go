// Package stats implements single-pass, bounded-memory statistics over pages
// of persisted observation rows. Accumulators are interval-agnostic: nothing
// assumes daily bars, and annualization is inferred from the data itself.
package stats

import (
	"math"
	"sort"
	"time"

	"backtest-reporter/internal/observation"
)

// Accumulator consumes the stream one page at a time. Update never re-reads
// prior pages; Result is idempotent and may run a one-time finalization on
// first call. Result on an untouched accumulator returns nil, never an error.
// Internal accumulators are intermediate series excluded from the report.
type Accumulator interface {
	Name() string
	Internal() bool
	Update(page *observation.Page)
	Result() any
}

// Columns the state accumulators derive portfolio value from.
const (
	colCash      = "cap_cash"
	colNumShares = "h_num_shares"
	colClose     = "s_close"
	colAction    = "a_type"
)

// portfolioValue is cash plus mark-to-market position value for one row.
func portfolioValue(row observation.Row) float64 {
	return row.FloatOrZero(colCash) + row.FloatOrZero(colNumShares)*row.FloatOrZero(colClose)
}

type timePoint struct {
	ts    time.Time
	value float64
}

func sortByTime(points []timePoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })
}

// round rounds half to even.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

const (
	secondsPerHour = 3600
	secondsPerDay  = 86400
	secondsPerWeek = 604800
)
