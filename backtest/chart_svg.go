package backtest

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

type SVGChartOptions struct {
	Width  int
	Height int
}

func (o SVGChartOptions) withDefaults() SVGChartOptions {
	if o.Width <= 0 {
		o.Width = 980
	}
	if o.Height <= 0 {
		o.Height = 520
	}
	return o
}

const (
	chartBg      = "#0b1220"
	chartGrid    = "rgba(255,255,255,0.08)"
	chartText    = "rgba(255,255,255,0.85)"
	chartFont    = "ui-monospace, Menlo, Monaco, Consolas, monospace"
	colPrice     = "#e2e8f0"
	colSupport   = "#f59e0b"
	colBuy       = "#22c55e"
	colSell      = "#ef4444"
	colBuyHold   = "#38bdf8"
	colStrategy  = "#a3e635"
	markerRadius = 5.0
)

// chartFrame is the plot area shared by every panel of one chart.
type chartFrame struct {
	opt   SVGChartOptions
	mLeft float64
	plotW float64
	mTop  float64
	plotH float64
	step  float64
}

func newChartFrame(opt SVGChartOptions, n int) (chartFrame, error) {
	f := chartFrame{opt: opt, mLeft: 70, mTop: 24}
	f.plotW = float64(opt.Width) - f.mLeft - 20
	f.plotH = float64(opt.Height) - f.mTop - 40
	if f.plotW <= 10 || f.plotH <= 10 {
		return chartFrame{}, fmt.Errorf("invalid chart size")
	}
	f.step = f.plotW / float64(n)
	return f, nil
}

func (f chartFrame) xAt(i int) float64 {
	return f.mLeft + (float64(i)+0.5)*f.step
}

// valueScale maps a value range onto a vertical band [top, top+height].
type valueScale struct {
	min, max    float64
	top, height float64
}

func newValueScale(lo, hi, top, height float64) (valueScale, error) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return valueScale{}, fmt.Errorf("invalid price range")
	}
	pad := (hi - lo) * 0.05
	if pad <= 0 {
		pad = math.Max(math.Abs(lo)*0.02, 1e-9)
	}
	return valueScale{min: lo - pad, max: hi + pad, top: top, height: height}, nil
}

func (s valueScale) y(v float64) float64 {
	r := (v - s.min) / (s.max - s.min)
	r = math.Max(0, math.Min(1, r))
	return s.top + (1.0-r)*s.height
}

func writeSVGOpen(buf *bytes.Buffer, opt SVGChartOptions) {
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + strconv.Itoa(opt.Width) + `" height="` + strconv.Itoa(opt.Height) + `" viewBox="0 0 ` + strconv.Itoa(opt.Width) + ` ` + strconv.Itoa(opt.Height) + `">` + "\n")
	buf.WriteString(`<rect x="0" y="0" width="100%" height="100%" fill="` + chartBg + `"/>` + "\n")
}

func writeText(buf *bytes.Buffer, x, y float64, col string, size int, s string) {
	buf.WriteString(`<text x="` + fmtFloat(x) + `" y="` + fmtFloat(y) + `" fill="` + col + `" font-size="` + strconv.Itoa(size) + `" font-family="` + chartFont + `">` +
		html.EscapeString(s) + `</text>` + "\n")
}

func writeHeader(buf *bytes.Buffer, f chartFrame, title string, rows []Row) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "UNKNOWN"
	}
	firstD := rows[0].Date.Format("2006-01-02")
	lastD := rows[len(rows)-1].Date.Format("2006-01-02")
	writeText(buf, f.mLeft, 16, chartText, 14, title+"  "+firstD+" ~ "+lastD)

	footY := f.mTop + f.plotH + 28
	writeText(buf, f.mLeft, footY, chartText, 12, firstD)
	writeText(buf, f.mLeft+f.plotW-70, footY, chartText, 12, lastD)
}

func writeGrid(buf *bytes.Buffer, f chartFrame, s valueScale, lines int, label func(float64) string) {
	for k := 0; k <= lines; k++ {
		y := s.top + (float64(k)/float64(lines))*s.height
		buf.WriteString(`<line x1="` + fmtFloat(f.mLeft) + `" y1="` + fmtFloat(y) + `" x2="` + fmtFloat(f.mLeft+f.plotW) + `" y2="` + fmtFloat(y) + `" stroke="` + chartGrid + `" stroke-width="1"/>` + "\n")
		v := s.max - (float64(k)/float64(lines))*(s.max-s.min)
		writeText(buf, 6, y+4, chartText, 12, label(v))
	}
}

// writePolyline draws the valid points of ys, starting a new segment after
// every gap.
func writePolyline(buf *bytes.Buffer, f chartFrame, s valueScale, ys []NullFloat, col string, width float64, dash bool) {
	style := ""
	if dash {
		style = ` stroke-dasharray="6 4"`
	}
	var pts strings.Builder
	flush := func() {
		if pts.Len() > 0 {
			buf.WriteString(`<polyline fill="none" stroke="` + col + `" stroke-width="` + fmtFloat(width) + `"` + style + ` points="` + pts.String() + `"/>` + "\n")
			pts.Reset()
		}
	}
	for i, v := range ys {
		if !v.Valid {
			flush()
			continue
		}
		if pts.Len() > 0 {
			pts.WriteByte(' ')
		}
		pts.WriteString(fmtFloat(f.xAt(i)))
		pts.WriteByte(',')
		pts.WriteString(fmtFloat(s.y(v.Float64)))
	}
	flush()
}

// writeMarker draws a triangle pointing up (buy) or down (sell).
func writeMarker(buf *bytes.Buffer, x, y float64, up bool, col string) {
	r := markerRadius
	var pts string
	if up {
		pts = fmtFloat(x) + "," + fmtFloat(y-r) + " " + fmtFloat(x-r) + "," + fmtFloat(y+r) + " " + fmtFloat(x+r) + "," + fmtFloat(y+r)
	} else {
		pts = fmtFloat(x) + "," + fmtFloat(y+r) + " " + fmtFloat(x-r) + "," + fmtFloat(y-r) + " " + fmtFloat(x+r) + "," + fmtFloat(y-r)
	}
	buf.WriteString(`<polygon points="` + pts + `" fill="` + col + `"/>` + "\n")
}

func writeLegend(buf *bytes.Buffer, f chartFrame, y float64, items [][2]string) {
	x := f.mLeft + f.plotW
	for i := len(items) - 1; i >= 0; i-- {
		label, col := items[i][0], items[i][1]
		x -= float64(len(label))*7.2 + 22
		buf.WriteString(`<rect x="` + fmtFloat(x) + `" y="` + fmtFloat(y-9) + `" width="10" height="10" fill="` + col + `"/>` + "\n")
		writeText(buf, x+14, y, col, 12, label)
	}
}

// RenderSignalsSVG draws the selected price with its support line, buy and
// sell markers, and a volume panel below.
func RenderSignalsSVG(title string, res *Result, opt SVGChartOptions) ([]byte, error) {
	opt = opt.withDefaults()
	if res == nil || len(res.Rows) < 2 {
		return nil, fmt.Errorf("not enough bars")
	}
	rows := res.Rows
	field := res.Config.Price

	prices := make([]NullFloat, len(rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	see := func(v NullFloat) {
		if v.Valid {
			lo = math.Min(lo, v.Float64)
			hi = math.Max(hi, v.Float64)
		}
	}
	for i, r := range rows {
		prices[i] = Some(r.PricePoint().Price(field))
		see(prices[i])
		see(r.SupportLine)
		see(r.BoughtPrice)
		see(r.SoldPrice)
	}

	f, err := newChartFrame(opt, len(rows))
	if err != nil {
		return nil, err
	}
	pricePanel, volPanel := splitVolumePanel(f)
	ps, err := newValueScale(lo, hi, pricePanel.top, pricePanel.height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeSVGOpen(&buf, opt)
	writeHeader(&buf, f, title, rows)
	writeGrid(&buf, f, ps, 5, fmtPrice)
	writeVolumePanel(&buf, f, volPanel, rows)

	support := make([]NullFloat, len(rows))
	for i, r := range rows {
		support[i] = r.SupportLine
	}
	writePolyline(&buf, f, ps, prices, colPrice, 1.4, false)
	writePolyline(&buf, f, ps, support, colSupport, 1.2, true)

	for i, r := range rows {
		if r.BoughtPrice.Valid {
			writeMarker(&buf, f.xAt(i), ps.y(r.BoughtPrice.Float64)+markerRadius*1.6, true, colBuy)
		}
		if r.SoldPrice.Valid {
			writeMarker(&buf, f.xAt(i), ps.y(r.SoldPrice.Float64)-markerRadius*1.6, false, colSell)
		}
	}

	writeLegend(&buf, f, 16, [][2]string{
		{string(field), colPrice},
		{"Support", colSupport},
		{fmt.Sprintf("Buy %d", countTrades(res.Trades, ActionBuy)), colBuy},
		{fmt.Sprintf("Sell %d", countTrades(res.Trades, ActionSell)), colSell},
	})

	buf.WriteString(`</svg>` + "\n")
	return buf.Bytes(), nil
}

// RenderEquitySVG compares the Base Trading and Buy & Hold equity curves.
func RenderEquitySVG(title string, res *Result, opt SVGChartOptions) ([]byte, error) {
	opt = opt.withDefaults()
	if res == nil || len(res.Rows) < 2 {
		return nil, fmt.Errorf("not enough bars")
	}
	rows := res.Rows

	bh := make([]NullFloat, len(rows))
	bt := make([]NullFloat, len(rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, r := range rows {
		bh[i], bt[i] = r.BuyHold, r.BaseTrading
		for _, v := range []NullFloat{r.BuyHold, r.BaseTrading} {
			if v.Valid {
				lo = math.Min(lo, v.Float64)
				hi = math.Max(hi, v.Float64)
			}
		}
	}

	f, err := newChartFrame(opt, len(rows))
	if err != nil {
		return nil, err
	}
	s, err := newValueScale(lo, hi, f.mTop, f.plotH)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeSVGOpen(&buf, opt)
	writeHeader(&buf, f, title, rows)
	writeGrid(&buf, f, s, 5, formatWholeCash)

	initY := s.y(res.Config.InitCash)
	buf.WriteString(`<line x1="` + fmtFloat(f.mLeft) + `" y1="` + fmtFloat(initY) + `" x2="` + fmtFloat(f.mLeft+f.plotW) + `" y2="` + fmtFloat(initY) + `" stroke="` + chartText + `" stroke-width="0.8" stroke-dasharray="2 4"/>` + "\n")

	writePolyline(&buf, f, s, bh, colBuyHold, 1.4, false)
	writePolyline(&buf, f, s, bt, colStrategy, 1.6, false)

	last := rows[len(rows)-1]
	writeLegend(&buf, f, 16, [][2]string{
		{StrategyBuyHold + " " + formatWholeCash(last.BuyHold.Float64), colBuyHold},
		{StrategyBaseTrading + " " + formatWholeCash(last.BaseTrading.Float64), colStrategy},
	})

	buf.WriteString(`</svg>` + "\n")
	return buf.Bytes(), nil
}

func countTrades(trades []Trade, a TradeAction) int {
	n := 0
	for _, t := range trades {
		if t.Action == a {
			n++
		}
	}
	return n
}

func fmtFloat(x float64) string {
	// stable compact formatting for SVG attributes
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func fmtPrice(p float64) string {
	// keep price labels readable
	if p >= 1000 {
		return strconv.FormatFloat(p, 'f', 0, 64)
	}
	if p >= 100 {
		return strconv.FormatFloat(p, 'f', 1, 64)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
