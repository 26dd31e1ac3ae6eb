package backtest

import (
	"fmt"
	"math"
	"time"
)

// Config holds the strategy parameters of one backtest.
type Config struct {
	Price        PriceField `json:"price" yaml:"price"`
	ValidDays    int        `json:"valid_days" yaml:"valid_days"`
	BreakSupport float64    `json:"break_support" yaml:"break_support"`
	BreakResist  float64    `json:"break_resist" yaml:"break_resist"`
	MaxPos       int        `json:"max_pos" yaml:"max_pos"`
	InitCash     float64    `json:"init_cash" yaml:"init_cash"`
}

func DefaultConfig() Config {
	return Config{
		Price:        PriceClose,
		ValidDays:    20,
		BreakSupport: 0.1,
		BreakResist:  0.4,
		MaxPos:       5,
		InitCash:     10000,
	}
}

func (c Config) Validate() error {
	switch c.Price {
	case PriceOpen, PriceHigh, PriceLow, PriceClose:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPriceField, c.Price)
	}
	if c.MaxPos <= 0 {
		return fmt.Errorf("%w: max_pos must be > 0, got %d", ErrInvalidConfig, c.MaxPos)
	}
	if c.ValidDays <= 0 {
		return fmt.Errorf("%w: valid_days must be > 0, got %d", ErrInvalidConfig, c.ValidDays)
	}
	if !(c.BreakSupport > 0) || math.IsInf(c.BreakSupport, 0) {
		return fmt.Errorf("%w: break_support must be > 0, got %v", ErrInvalidConfig, c.BreakSupport)
	}
	if !(c.BreakResist > 0) || math.IsInf(c.BreakResist, 0) {
		return fmt.Errorf("%w: break_resist must be > 0, got %v", ErrInvalidConfig, c.BreakResist)
	}
	if !(c.InitCash > 0) || math.IsInf(c.InitCash, 0) {
		return fmt.Errorf("%w: init_cash must be > 0, got %v", ErrInvalidConfig, c.InitCash)
	}
	return nil
}

func (c Config) dipToBuy() float64   { return 1 - c.BreakSupport }
func (c Config) hypeToSell() float64 { return 1 + c.BreakResist }

// PositionSize is the fraction added or removed by one trade.
func (c Config) PositionSize() float64 { return 1 / float64(c.MaxPos) }

// Result is everything one Execute call derives from a price series.
type Result struct {
	Config   Config     `json:"config"`
	Rows     []Row      `json:"rows"`
	Supports []Support  `json:"supports"`
	Trades   []Trade    `json:"trades"`
	Stats    StatsTable `json:"stats"`
}

// Trader runs the base trading backtest for a fixed, validated Config.
// A Trader keeps no state between Execute calls and is safe for concurrent use.
type Trader struct {
	cfg Config
}

func NewTrader(cfg Config) (*Trader, error) {
	if p, ok := ParsePriceField(string(cfg.Price)); ok {
		cfg.Price = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trader{cfg: cfg}, nil
}

func (t *Trader) Config() Config { return t.cfg }

// Execute finds supports, generates signals, builds both equity curves and
// summarizes them.
func (t *Trader) Execute(series []PricePoint) (*Result, error) {
	cfg := t.cfg
	if err := validateSeries(series, cfg.Price); err != nil {
		return nil, err
	}

	n := len(series)
	prices := make([]float64, n)
	dates := make([]time.Time, n)
	for i, p := range series {
		prices[i] = p.Price(cfg.Price)
		dates[i] = p.Date
	}

	supports := FindSupports(prices, cfg.ValidDays)
	line := BuildSupportLine(n, supports, cfg.ValidDays)
	sig, err := GenerateSignals(series, supports, cfg)
	if err != nil {
		return nil, err
	}
	curves := ComputeReturns(prices, sig.Position, cfg.InitCash)

	rows := make([]Row, n)
	for i, p := range series {
		rows[i] = Row{
			Date:              p.Date,
			Open:              p.Open,
			High:              p.High,
			Low:               p.Low,
			Close:             p.Close,
			Volume:            p.Volume,
			SupportLine:       line[i],
			Position:          sig.Position[i],
			BoughtPrice:       sig.BoughtPrice[i],
			SoldPrice:         sig.SoldPrice[i],
			MarketLogReturn:   curves.MarketLogReturn[i],
			StrategyLogReturn: curves.StrategyLogReturn[i],
			BuyHold:           Some(curves.BuyHold[i]),
			BaseTrading:       Some(curves.BaseTrading[i]),
			MarketReturn:      curves.MarketReturn[i],
			StrategyReturn:    curves.StrategyReturn[i],
		}
	}
	for _, s := range supports {
		rows[s.Index].Support = Some(s.Price)
	}

	return &Result{
		Config:   cfg,
		Rows:     rows,
		Supports: supports,
		Trades:   sig.Trades,
		Stats:    Summarize(dates, curves, cfg.InitCash),
	}, nil
}

// Execute is a one-shot NewTrader(cfg).Execute(series).
func Execute(series []PricePoint, cfg Config) (*Result, error) {
	t, err := NewTrader(cfg)
	if err != nil {
		return nil, err
	}
	return t.Execute(series)
}

func validateSeries(series []PricePoint, field PriceField) error {
	for i, p := range series {
		v := p.Price(field)
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v at %s (index %d)", ErrInvalidPrice, field, v, p.Date.Format("2006-01-02"), i)
		}
		if i > 0 && !p.Date.After(series[i-1].Date) {
			return fmt.Errorf("%w: %s follows %s (index %d)", ErrUnorderedSeries,
				p.Date.Format("2006-01-02"), series[i-1].Date.Format("2006-01-02"), i)
		}
	}
	return nil
}
