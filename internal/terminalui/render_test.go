package terminalui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"basetrader/backtest"
)

func testReport(t *testing.T) *backtest.Report {
	t.Helper()
	closes := []float64{100, 90, 50, 90, 100, 60, 44, 60, 75, 80, 90}
	series := make([]backtest.PricePoint, len(closes))
	for i, c := range closes {
		series[i] = backtest.PricePoint{
			Date:  time.Date(2022, 1, 1+i, 0, 0, 0, 0, time.Local),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	cfg := backtest.DefaultConfig()
	cfg.ValidDays = 2
	cfg.MaxPos = 1
	res, err := backtest.Execute(series, cfg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return &backtest.Report{
		Source: "yahoo", Ticker: "TEST",
		Start: "2022-01-01", End: "2022-01-11",
		Bars:    len(series),
		Display: res.Stats.Display(),
		Result:  res,
	}
}

func TestRenderStatsTable(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, SnapshotFromReport(testReport(t), 1))
	out := buf.String()

	for _, want := range []string{"TEST [yahoo]", "Metrics", backtest.StrategyBuyHold, backtest.StrategyBaseTrading, "Sharpe Ratio", "Trades (2, latest 1)", "sell"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHidesTradesWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, SnapshotFromReport(testReport(t), 0))
	out := buf.String()
	if strings.Contains(out, "Trades (") {
		t.Fatalf("trade list should be hidden")
	}

	// every framed line has the same visible width
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := len([]rune(stripANSI(lines[0])))
	for i, l := range lines {
		if n := len([]rune(stripANSI(l))); n != width {
			t.Fatalf("line %d width %d, want %d: %q", i, n, width, l)
		}
	}
}

func TestColorByChange(t *testing.T) {
	if colorByChange("$-120") != "\033[32m" || colorByChange("$0") != "\033[37m" || colorByChange("$1,500") != "\033[31m" {
		t.Fatalf("unexpected colors")
	}
}
