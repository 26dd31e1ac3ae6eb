package backtest

import (
	"bytes"
	"math"
	"strconv"
)

// panelBand is a vertical slice of the plot area.
type panelBand struct {
	top, height float64
}

// splitVolumePanel gives the price panel ~72% of the plot height and the
// volume panel the rest, never less than 60px.
func splitVolumePanel(f chartFrame) (price, volume panelBand) {
	gap := 14.0
	priceH := f.plotH * 0.72
	volH := f.plotH - priceH - gap
	if volH < 60 {
		volH = 60
		priceH = f.plotH - volH - gap
	}
	price = panelBand{top: f.mTop, height: priceH}
	volume = panelBand{top: f.mTop + priceH + gap, height: volH}
	return price, volume
}

func writeVolumePanel(buf *bytes.Buffer, f chartFrame, band panelBand, rows []Row) {
	maxV := int64(0)
	for _, r := range rows {
		if r.Volume > maxV {
			maxV = r.Volume
		}
	}
	bottom := band.top + band.height

	volToY := func(v int64) float64 {
		if maxV <= 0 || v <= 0 {
			return bottom
		}
		r := float64(v) / float64(maxV)
		r = math.Max(0, math.Min(1, r))
		return bottom - r*band.height
	}

	for k := 0; k <= 2; k++ {
		y := band.top + (float64(k)/2.0)*band.height
		buf.WriteString(`<line x1="` + fmtFloat(f.mLeft) + `" y1="` + fmtFloat(y) + `" x2="` + fmtFloat(f.mLeft+f.plotW) + `" y2="` + fmtFloat(y) + `" stroke="` + chartGrid + `" stroke-width="1"/>` + "\n")
		if maxV > 0 {
			v := float64(maxV) * (1.0 - float64(k)/2.0)
			writeText(buf, 6, y+4, chartText, 12, fmtVol(v))
		}
	}

	cw := math.Max(1.0, f.step*0.65)
	for i, r := range rows {
		x := f.xAt(i)
		col := "rgba(34,197,94,0.35)"
		if r.Close < r.Open {
			col = "rgba(239,68,68,0.35)"
		}
		y := volToY(r.Volume)
		hh := bottom - y
		if hh < 1 {
			hh = 1
		}
		buf.WriteString(`<rect x="` + fmtFloat(x-cw/2) + `" y="` + fmtFloat(y) + `" width="` + fmtFloat(cw) + `" height="` + fmtFloat(hh) + `" fill="` + col + `"/>` + "\n")
	}

	// position exposure drawn over the volume bars, 0..1
	var pts []byte
	for i, r := range rows {
		if len(pts) > 0 {
			pts = append(pts, ' ')
		}
		pts = append(pts, fmtFloat(f.xAt(i))...)
		pts = append(pts, ',')
		pts = append(pts, fmtFloat(bottom-math.Max(0, math.Min(1, r.Position))*band.height)...)
	}
	buf.WriteString(`<polyline fill="none" stroke="rgba(56,189,248,0.9)" stroke-width="1.2" points="` + string(pts) + `"/>` + "\n")

	writeText(buf, f.mLeft, band.top-4, chartText, 12, "VOLUME / POSITION")
}

func fmtVol(v float64) string {
	if v >= 100000000 {
		return strconv.FormatFloat(v/100000000, 'f', 1, 64) + "e8"
	}
	if v >= 10000 {
		return strconv.FormatFloat(v/10000, 'f', 1, 64) + "e4"
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}
