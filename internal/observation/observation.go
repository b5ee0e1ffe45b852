package observation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the two persisted observation streams.
type Kind string

const (
	KindState Kind = "state"
	KindTrade Kind = "trade"
)

// Kinds lists every stream kind in a stable order.
var Kinds = []Kind{KindState, KindTrade}

// Fields shared by every observation; written without a namespace prefix.
const (
	FieldTimestamp = "dt"
	FieldTicker    = "ticker"
)

// Observable is one logical observation produced during a simulation tick.
// Fields returns the unprefixed field names in column order; Values maps each
// of them to its rendered value. Ticker is empty for account-wide observables,
// which the recorder broadcasts into every known ticker's row.
type Observable interface {
	Kind() Kind
	Prefix() string
	Fields() []string
	Values() map[string]string
	Ticker() string
	Timestamp() time.Time
}

// StockSlice is a per-ticker market snapshot.
type StockSlice struct {
	DT     time.Time
	Symbol string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

func (s StockSlice) Kind() Kind           { return KindState }
func (s StockSlice) Prefix() string       { return "s" }
func (s StockSlice) Ticker() string       { return s.Symbol }
func (s StockSlice) Timestamp() time.Time { return s.DT }

func (s StockSlice) Fields() []string {
	return []string{"open", "high", "low", "close", "volume"}
}

func (s StockSlice) Values() map[string]string {
	return map[string]string{
		"open":   s.Open.String(),
		"high":   s.High.String(),
		"low":    s.Low.String(),
		"close":  s.Close.String(),
		"volume": formatInt(s.Volume),
	}
}

// CapitalSlice is the account-wide cash position; it carries no ticker and is
// broadcast into every row of the tick.
type CapitalSlice struct {
	DT   time.Time
	Cash decimal.Decimal
	Debt decimal.Decimal
}

func (c CapitalSlice) Kind() Kind           { return KindState }
func (c CapitalSlice) Prefix() string       { return "cap" }
func (c CapitalSlice) Ticker() string       { return "" }
func (c CapitalSlice) Timestamp() time.Time { return c.DT }

func (c CapitalSlice) Fields() []string { return []string{"cash", "debt"} }

func (c CapitalSlice) Values() map[string]string {
	return map[string]string{
		"cash": c.Cash.String(),
		"debt": c.Debt.String(),
	}
}

// HoldingSlice is the open position in one ticker.
type HoldingSlice struct {
	DT        time.Time
	Symbol    string
	NumShares int64
	BuyPrice  decimal.Decimal
}

func (h HoldingSlice) Kind() Kind           { return KindState }
func (h HoldingSlice) Prefix() string       { return "h" }
func (h HoldingSlice) Ticker() string       { return h.Symbol }
func (h HoldingSlice) Timestamp() time.Time { return h.DT }

func (h HoldingSlice) Fields() []string { return []string{"num_shares", "buy_price"} }

func (h HoldingSlice) Values() map[string]string {
	return map[string]string{
		"num_shares": formatInt(h.NumShares),
		"buy_price":  h.BuyPrice.String(),
	}
}

// ActionType tags a trade observation.
type ActionType string

const (
	ActionBuy  ActionType = "buy"
	ActionSell ActionType = "sell"
)

// TradeAction is an executed buy or sell.
type TradeAction struct {
	DT        time.Time
	Symbol    string
	Type      ActionType
	NumShares int64
}

func (a TradeAction) Kind() Kind           { return KindTrade }
func (a TradeAction) Prefix() string       { return "a" }
func (a TradeAction) Ticker() string       { return a.Symbol }
func (a TradeAction) Timestamp() time.Time { return a.DT }

func (a TradeAction) Fields() []string { return []string{"type", "num_shares"} }

func (a TradeAction) Values() map[string]string {
	return map[string]string{
		"type":       string(a.Type),
		"num_shares": formatInt(a.NumShares),
	}
}
