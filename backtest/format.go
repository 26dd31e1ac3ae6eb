package backtest

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "n/a"

var displayPrinter = message.NewPrinter(language.English)

// StatsDisplay is the formatted form of Stats shown in tables and reports.
type StatsDisplay struct {
	Strategy             string `json:"strategy"`
	Start                string `json:"start"`
	End                  string `json:"end"`
	Duration             string `json:"duration"`
	InitialCash          string `json:"initial_cash"`
	EndingCash           string `json:"ending_cash"`
	TotalProfit          string `json:"total_profit"`
	ProfitMargin         string `json:"profit_margin"`
	AnnualizedReturn     string `json:"annualized_return"`
	AnnualizedVolatility string `json:"annualized_volatility"`
	SharpeRatio          string `json:"sharpe_ratio"`
}

func (s Stats) Display() StatsDisplay {
	d := StatsDisplay{
		Strategy:             s.Strategy,
		Start:                notAvailable,
		End:                  notAvailable,
		Duration:             strconv.Itoa(s.DurationDays) + " days",
		InitialCash:          formatCash(s.InitialCash),
		EndingCash:           formatWholeCash(s.EndingCash),
		TotalProfit:          formatWholeCash(s.TotalProfit),
		ProfitMargin:         formatMargin(s.ProfitMarginPct),
		AnnualizedReturn:     formatPercent(s.AnnualizedReturnPct),
		AnnualizedVolatility: formatPercent(s.AnnualizedVolatilityPct),
		SharpeRatio:          notAvailable,
	}
	if !s.Start.IsZero() {
		d.Start = s.Start.Format("2006-01-02")
		d.End = s.End.Format("2006-01-02")
	}
	if s.SharpeRatio.Valid && isFinite(s.SharpeRatio.Float64) {
		d.SharpeRatio = round2(s.SharpeRatio.Float64)
	}
	return d
}

func (t StatsTable) Display() []StatsDisplay {
	out := make([]StatsDisplay, 0, len(t))
	for _, s := range t {
		out = append(out, s.Display())
	}
	return out
}

// StatsColumns lists the metric names in table order.
var StatsColumns = []string{
	"Start", "End", "Duration", "Initial Cash", "Ending Cash", "Total Profit",
	"Profit Margin (%)", "Annualized Return (%)", "Annualized Volatility (%)", "Sharpe Ratio",
}

// Matrix returns the table transposed: a header row ("Metrics" followed by
// strategy names) and one row per metric.
func (t StatsTable) Matrix() [][]string {
	header := []string{"Metrics"}
	cols := make([][]string, 0, len(t))
	for _, s := range t {
		header = append(header, s.Strategy)
		d := s.Display()
		cols = append(cols, []string{
			d.Start, d.End, d.Duration, d.InitialCash, d.EndingCash, d.TotalProfit,
			d.ProfitMargin, d.AnnualizedReturn, d.AnnualizedVolatility, d.SharpeRatio,
		})
	}

	out := [][]string{header}
	for i, metric := range StatsColumns {
		row := []string{metric}
		for _, c := range cols {
			row = append(row, c[i])
		}
		out = append(out, row)
	}
	return out
}

func formatCash(x float64) string {
	if !isFinite(x) {
		return notAvailable
	}
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return displayPrinter.Sprintf("$%d", int64(x))
	}
	return displayPrinter.Sprintf("$%.2f", x)
}

// formatWholeCash truncates toward zero before grouping.
func formatWholeCash(x float64) string {
	if !isFinite(x) || math.Abs(x) >= 1e18 {
		return notAvailable
	}
	return displayPrinter.Sprintf("$%d", int64(x))
}

func formatMargin(pct float64) string {
	if !isFinite(pct) || math.Abs(pct) >= 1e18 {
		return notAvailable
	}
	return displayPrinter.Sprintf("%d%% (%sx)", int64(pct), round2(pct/100))
}

func formatPercent(v NullFloat) string {
	if !v.Valid || !isFinite(v.Float64) {
		return notAvailable
	}
	return round2(v.Float64) + "%"
}

// round2 rounds half to even at two decimals and drops trailing zeros.
func round2(x float64) string {
	return decimal.NewFromFloat(x).RoundBank(2).String()
}
