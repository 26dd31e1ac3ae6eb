package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	periodsPerYear = 365
	// sharpeReferenceRate is subtracted from the annualized return in percent.
	sharpeReferenceRate = 8.0
	// statsSkip is the number of leading simple returns left out of the
	// annualized figures.
	statsSkip = 2
)

type Stats struct {
	Strategy                string    `json:"strategy"`
	Start                   time.Time `json:"start"`
	End                     time.Time `json:"end"`
	DurationDays            int       `json:"duration_days"`
	InitialCash             float64   `json:"initial_cash"`
	EndingCash              float64   `json:"ending_cash"`
	TotalProfit             float64   `json:"total_profit"`
	ProfitMarginPct         float64   `json:"profit_margin_pct"`
	AnnualizedReturnPct     NullFloat `json:"annualized_return_pct"`
	AnnualizedVolatilityPct NullFloat `json:"annualized_volatility_pct"`
	SharpeRatio             NullFloat `json:"sharpe_ratio"`
}

// StatsTable is indexed by strategy name: Buy & Hold first, then Base Trading.
type StatsTable []Stats

func (t StatsTable) Get(strategy string) (Stats, bool) {
	for _, s := range t {
		if s.Strategy == strategy {
			return s, true
		}
	}
	return Stats{}, false
}

// Summarize reduces both equity curves to the comparison table.
func Summarize(dates []time.Time, c Curves, initCash float64) StatsTable {
	return StatsTable{
		summarizeOne(StrategyBuyHold, dates, c.BuyHold, c.MarketReturn, initCash),
		summarizeOne(StrategyBaseTrading, dates, c.BaseTrading, c.StrategyReturn, initCash),
	}
}

func summarizeOne(name string, dates []time.Time, equity []float64, returns []NullFloat, initCash float64) Stats {
	s := Stats{
		Strategy:    name,
		InitialCash: initCash,
		EndingCash:  initCash,
	}
	if n := len(dates); n > 0 {
		s.Start = dates[0]
		s.End = dates[n-1]
		s.DurationDays = daysBetween(s.Start, s.End)
	}
	if n := len(equity); n > 0 {
		s.EndingCash = equity[n-1]
	}
	s.TotalProfit = s.EndingCash - s.InitialCash
	s.ProfitMarginPct = s.TotalProfit / s.InitialCash * 100

	if len(returns) <= statsSkip {
		return s
	}
	r := make([]float64, 0, len(returns)-statsSkip)
	for _, v := range returns[statsSkip:] {
		if v.Valid {
			r = append(r, v.Float64)
		}
	}
	if len(r) == 0 {
		return s
	}

	mean, variance := stat.PopMeanVariance(r, nil)
	annRet := (math.Pow(mean+1, periodsPerYear) - 1) * 100
	annVol := math.Sqrt(variance) * math.Sqrt(periodsPerYear) * 100
	if isFinite(annRet) {
		s.AnnualizedReturnPct = Some(annRet)
	}
	if isFinite(annVol) {
		s.AnnualizedVolatilityPct = Some(annVol)
	}
	if s.AnnualizedReturnPct.Valid && s.AnnualizedVolatilityPct.Valid && annVol > 0 {
		s.SharpeRatio = Some((annRet - sharpeReferenceRate) / annVol)
	}
	return s
}

// daysBetween counts calendar days, ignoring clock time and DST shifts.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
