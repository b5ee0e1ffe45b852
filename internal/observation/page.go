package observation

import (
	"strconv"
	"time"
)

// TimeLayout is the rendering of dt in the persisted streams.
const TimeLayout = time.RFC3339

// Row is one persisted observation with its timestamp column parsed.
type Row struct {
	DT     time.Time
	Ticker string

	values map[string]string
}

// NewRow builds a row over an already-parsed value map.
func NewRow(dt time.Time, ticker string, values map[string]string) Row {
	return Row{DT: dt, Ticker: ticker, values: values}
}

// Value returns the raw cell for a column, empty if absent.
func (r Row) Value(column string) string { return r.values[column] }

// Float parses a numeric cell. Missing or malformed cells report ok=false so
// callers can treat them as absent rather than zero.
func (r Row) Float(column string) (float64, bool) {
	raw := r.values[column]
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FloatOrZero parses a numeric cell, coercing missing or malformed cells to 0.
func (r Row) FloatOrZero(column string) float64 {
	v, _ := r.Float(column)
	return v
}

// Page is one bounded batch of rows; never the whole stream.
type Page struct {
	Rows []Row
}

// Empty reports whether the page holds no rows.
func (p *Page) Empty() bool { return p == nil || len(p.Rows) == 0 }

// FilterTicker returns the subset of rows bound to one ticker.
func (p *Page) FilterTicker(ticker string) *Page {
	out := &Page{}
	for _, row := range p.Rows {
		if row.Ticker == ticker {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
