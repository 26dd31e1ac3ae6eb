package backtest

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type PriceField string

const (
	PriceOpen  PriceField = "Open"
	PriceHigh  PriceField = "High"
	PriceLow   PriceField = "Low"
	PriceClose PriceField = "Close"
)

// ParsePriceField accepts the field name in any letter case.
func ParsePriceField(s string) (PriceField, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return PriceOpen, true
	case "high":
		return PriceHigh, true
	case "low":
		return PriceLow, true
	case "close":
		return PriceClose, true
	default:
		return "", false
	}
}

type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Price returns the value of the selected field. Unknown fields yield NaN.
func (p PricePoint) Price(f PriceField) float64 {
	switch f {
	case PriceOpen:
		return p.Open
	case PriceHigh:
		return p.High
	case PriceLow:
		return p.Low
	case PriceClose:
		return p.Close
	default:
		return math.NaN()
	}
}

type Support struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
}

type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Trade is one entry or exit fired by the signal generator, together with the
// support that backed it.
type Trade struct {
	Index        int         `json:"index"`
	Date         string      `json:"date"`
	Action       TradeAction `json:"action"`
	Price        float64     `json:"price"`
	SupportIndex int         `json:"support_index"`
	SupportPrice float64     `json:"support_price"`
}

// NullFloat is an optional number. Absent values encode as JSON null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func Some(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Row is an input record extended with every derived column.
type Row struct {
	Date              time.Time `json:"date"`
	Open              float64   `json:"open"`
	High              float64   `json:"high"`
	Low               float64   `json:"low"`
	Close             float64   `json:"close"`
	Volume            int64     `json:"volume"`
	Support           NullFloat `json:"support"`
	SupportLine       NullFloat `json:"support_line"`
	Position          float64   `json:"position"`
	BoughtPrice       NullFloat `json:"bought_price"`
	SoldPrice         NullFloat `json:"sold_price"`
	MarketLogReturn   NullFloat `json:"market_log_return"`
	StrategyLogReturn NullFloat `json:"strategy_log_return"`
	BuyHold           NullFloat `json:"buy_hold"`
	BaseTrading       NullFloat `json:"base_trading"`
	MarketReturn      NullFloat `json:"market_return"`
	StrategyReturn    NullFloat `json:"strategy_return"`
}

func (r Row) PricePoint() PricePoint {
	return PricePoint{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

const (
	StrategyBuyHold     = "Buy & Hold"
	StrategyBaseTrading = "Base Trading"
)
