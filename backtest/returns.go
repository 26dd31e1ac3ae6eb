package backtest

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Curves holds the per-step returns and equity curves of both strategies.
type Curves struct {
	MarketLogReturn   []NullFloat
	StrategyLogReturn []NullFloat
	BuyHold           []float64
	BaseTrading       []float64
	MarketReturn      []NullFloat
	StrategyReturn    []NullFloat
}

// ComputeReturns turns prices and the position series into log returns and
// compounded equity curves. Exposure at t is the position held at t-1.
// Simple returns are taken from the compounded curves and are absent for the
// first two steps.
func ComputeReturns(prices, position []float64, initCash float64) Curves {
	n := len(prices)
	c := Curves{
		MarketLogReturn:   make([]NullFloat, n),
		StrategyLogReturn: make([]NullFloat, n),
		BuyHold:           make([]float64, n),
		BaseTrading:       make([]float64, n),
		MarketReturn:      make([]NullFloat, n),
		StrategyReturn:    make([]NullFloat, n),
	}
	if n == 0 {
		return c
	}

	mkt := make([]float64, n)
	strat := make([]float64, n)
	for t := 1; t < n; t++ {
		mkt[t] = math.Log(prices[t] / prices[t-1])
		strat[t] = position[t-1] * mkt[t]
		c.MarketLogReturn[t] = Some(mkt[t])
		c.StrategyLogReturn[t] = Some(strat[t])
	}

	floats.CumSum(c.BuyHold, mkt)
	floats.CumSum(c.BaseTrading, strat)
	for t := 0; t < n; t++ {
		c.BuyHold[t] = initCash * math.Exp(c.BuyHold[t])
		c.BaseTrading[t] = initCash * math.Exp(c.BaseTrading[t])
	}

	for t := 2; t < n; t++ {
		c.MarketReturn[t] = Some((c.BuyHold[t] - c.BuyHold[t-1]) / c.BuyHold[t])
		c.StrategyReturn[t] = Some((c.BaseTrading[t] - c.BaseTrading[t-1]) / c.BaseTrading[t])
	}
	return c
}
