package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
)

// RowsCSVHeader is the column order written by WriteRowsCSV.
var RowsCSVHeader = []string{
	"Date", "Open", "High", "Low", "Close", "Volume",
	"Support", "Support Line", "Position", "Bought Price", "Sold Price",
	"Market Log Return", "Strategy Log Return",
	StrategyBuyHold, StrategyBaseTrading,
	"Market Return", "Strategy Return",
}

// WriteRowsCSV writes the extended series; absent values are empty cells.
func WriteRowsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RowsCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			formatCell(r.Open),
			formatCell(r.High),
			formatCell(r.Low),
			formatCell(r.Close),
			strconv.FormatInt(r.Volume, 10),
			formatNullCell(r.Support),
			formatNullCell(r.SupportLine),
			formatCell(r.Position),
			formatNullCell(r.BoughtPrice),
			formatNullCell(r.SoldPrice),
			formatNullCell(r.MarketLogReturn),
			formatNullCell(r.StrategyLogReturn),
			formatNullCell(r.BuyHold),
			formatNullCell(r.BaseTrading),
			formatNullCell(r.MarketReturn),
			formatNullCell(r.StrategyReturn),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func formatNullCell(v NullFloat) string {
	if !v.Valid {
		return ""
	}
	return formatCell(v.Float64)
}
