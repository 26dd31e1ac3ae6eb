package terminalui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"basetrader/backtest"
)

type Snapshot struct {
	Source string
	Ticker string
	Start  string
	End    string
	Bars   int
	Stats  backtest.StatsTable
	Trades []backtest.Trade

	// Print at most this many of the latest trades; 0 hides the trade list.
	MaxTrades int
}

// SnapshotFromReport builds a Snapshot of a finished run.
func SnapshotFromReport(rep *backtest.Report, maxTrades int) Snapshot {
	s := Snapshot{
		Source:    rep.Source,
		Ticker:    rep.Ticker,
		Start:     rep.Start,
		End:       rep.End,
		Bars:      rep.Bars,
		MaxTrades: maxTrades,
	}
	if rep.Result != nil {
		s.Stats = rep.Stats
		s.Trades = rep.Trades
	}
	return s
}

func Render(w io.Writer, s Snapshot) {
	matrix := s.Stats.Matrix()
	widths := columnWidths(matrix)

	inner := 2
	for _, wd := range widths {
		inner += wd + 2
	}
	title := fmt.Sprintf("%s [%s]  %s ~ %s  %d bars", s.Ticker, s.Source, s.Start, s.End, s.Bars)
	if n := utf8.RuneCountInString(title) + 4; n > inner {
		inner = n
	}

	bar := strings.Repeat("═", inner)
	fmt.Fprintln(w, "╔"+bar+"╗")
	fmt.Fprintln(w, "║"+pad("  "+title, inner)+"║")
	fmt.Fprintln(w, "╠"+bar+"╣")

	for i, row := range matrix {
		var line strings.Builder
		line.WriteString("  ")
		for j, cell := range row {
			c := pad(cell, widths[j])
			if i > 0 && j > 0 && row[0] == "Total Profit" {
				c = colorByChange(cell) + c + "\033[0m"
			}
			line.WriteString(c)
			line.WriteString("  ")
		}
		fmt.Fprintln(w, "║"+padVisible(line.String(), inner)+"║")
		if i == 0 {
			fmt.Fprintln(w, "╟"+strings.Repeat("─", inner)+"╢")
		}
	}

	if s.MaxTrades > 0 && len(s.Trades) > 0 {
		fmt.Fprintln(w, "╠"+bar+"╣")
		trades := s.Trades
		if len(trades) > s.MaxTrades {
			trades = trades[len(trades)-s.MaxTrades:]
		}
		fmt.Fprintln(w, "║"+pad(fmt.Sprintf("  Trades (%d, latest %d)", len(s.Trades), len(trades)), inner)+"║")
		for _, t := range trades {
			line := fmt.Sprintf("  %s  %-4s  %12.4f  support #%d @ %.4f", t.Date, t.Action, t.Price, t.SupportIndex, t.SupportPrice)
			fmt.Fprintln(w, "║"+pad(line, inner)+"║")
		}
	}
	fmt.Fprintln(w, "╚"+bar+"╝")
}

func columnWidths(matrix [][]string) []int {
	var widths []int
	for _, row := range matrix {
		for j, cell := range row {
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(cell); n > widths[j] {
				widths[j] = n
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// padVisible pads ignoring ANSI color sequences.
func padVisible(s string, width int) string {
	n := utf8.RuneCountInString(stripANSI(s))
	if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEsc = true
		case inEsc:
			if r == 'm' {
				inEsc = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func colorByChange(cell string) string {
	switch {
	case strings.HasPrefix(cell, "$-"), strings.HasPrefix(cell, "-"):
		return "\033[32m"
	case cell == "$0" || cell == "n/a":
		return "\033[37m"
	default:
		return "\033[31m"
	}
}
