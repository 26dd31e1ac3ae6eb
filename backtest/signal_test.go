package backtest

import (
	"math"
	"testing"
)

func runSignals(t *testing.T, cfg Config, prices ...float64) Signals {
	t.Helper()
	series := seriesFromCloses(prices...)
	sig, err := GenerateSignals(series, FindSupports(closes(series), cfg.ValidDays), cfg)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	return sig
}

func TestGenerateSignalsBuysHighestActiveSupport(t *testing.T) {
	// supports 50 (index 1) and 60 (index 3); 53 breaks only the 60 one
	sig := runSignals(t, testConfig(1, 2), 100, 50, 70, 60, 70, 53)
	if len(sig.Trades) != 1 {
		t.Fatalf("expected one trade, got %#v", sig.Trades)
	}
	if got := sig.Trades[0]; got.SupportIndex != 3 || got.SupportPrice != 60 {
		t.Fatalf("bought support %#v, want the 60 support at index 3", got)
	}
}

func TestGenerateSignalsExitsFirstBoughtFirst(t *testing.T) {
	// bought 50 then 44; 65 would clear 44*1.4 but the 50 support is in front
	sig := runSignals(t, testConfig(1, 2), 100, 50, 60, 44, 48, 39, 65, 72, 73, 80)

	if sig.SoldPrice[6].Valid {
		t.Fatalf("step 6 must not sell: front support needs > 70")
	}
	if !sig.SoldPrice[7].Valid || !sig.SoldPrice[8].Valid {
		t.Fatalf("expected sells at steps 7 and 8, got %v", sig.SoldPrice)
	}

	var sells []Trade
	for _, tr := range sig.Trades {
		if tr.Action == ActionSell {
			sells = append(sells, tr)
		}
	}
	if len(sells) != 2 || sells[0].SupportPrice != 50 || sells[1].SupportPrice != 44 {
		t.Fatalf("sells out of FIFO order: %#v", sells)
	}

	want := []float64{0, 0, 0, 0.5, 0.5, 1, 1, 0.5, 0, 0}
	for i, w := range want {
		if sig.Position[i] != w {
			t.Fatalf("position[%d]=%v, want %v", i, sig.Position[i], w)
		}
	}
}

func TestGenerateSignalsEntryAndExitInOneStep(t *testing.T) {
	prices := []float64{100, 50, 60, 44, 48, 39, 42, 35, 38, 31, 33, 200, 180, 190, 150, 160}
	sig := runSignals(t, testConfig(1, 4), prices...)

	if !sig.BoughtPrice[14].Valid || !sig.SoldPrice[14].Valid {
		t.Fatalf("step 14 should both enter (180 support) and exit (35 support): bought=%v sold=%v",
			sig.BoughtPrice[14], sig.SoldPrice[14])
	}

	var atStep []Trade
	for _, tr := range sig.Trades {
		if tr.Index == 14 {
			atStep = append(atStep, tr)
		}
	}
	if len(atStep) != 2 || atStep[0].Action != ActionBuy || atStep[1].Action != ActionSell {
		t.Fatalf("entry must be recorded before exit: %#v", atStep)
	}
	if atStep[0].SupportPrice != 180 || atStep[1].SupportPrice != 35 {
		t.Fatalf("unexpected supports %#v", atStep)
	}
	if sig.Held[14] != 1 || sig.Position[14] != 0.25 {
		t.Fatalf("held=%d position=%v after step 14", sig.Held[14], sig.Position[14])
	}
}

func TestGenerateSignalsInvariants(t *testing.T) {
	prices := make([]float64, 400)
	for i := range prices {
		x := float64(i)
		prices[i] = 100 + 30*math.Sin(x/7) + 12*math.Sin(x/2.3) + 0.05*x
	}
	for _, maxPos := range []int{1, 2, 5} {
		cfg := testConfig(4, maxPos)
		cfg.BreakSupport = 0.03
		cfg.BreakResist = 0.05
		sig := runSignals(t, cfg, prices...)

		if sig.Position[0] != 0 {
			t.Fatalf("position at step 0 must be 0")
		}
		buys, sells := 0, 0
		for _, tr := range sig.Trades {
			if tr.Action == ActionBuy {
				buys++
			} else {
				sells++
			}
		}
		if buys == 0 || sells == 0 {
			t.Fatalf("max_pos=%d: expected the oscillating series to trade, buys=%d sells=%d", maxPos, buys, sells)
		}
		if buys-sells != sig.Held[len(prices)-1] {
			t.Fatalf("max_pos=%d: buys-sells=%d, held=%d", maxPos, buys-sells, sig.Held[len(prices)-1])
		}

		unit := 1 / float64(maxPos)
		for i, p := range sig.Position {
			if p < 0 || p > 1 {
				t.Fatalf("position[%d]=%v out of [0,1]", i, p)
			}
			if sig.Held[i] > maxPos {
				t.Fatalf("held[%d]=%d exceeds max_pos %d", i, sig.Held[i], maxPos)
			}
			if k := p / unit; math.Abs(k-math.Round(k)) > 1e-9 {
				t.Fatalf("position[%d]=%v is not a multiple of %v", i, p, unit)
			}
			if i > 0 {
				if d := math.Abs(p - sig.Position[i-1]); d > unit+1e-9 {
					t.Fatalf("position moved by %v at step %d", d, i)
				}
			}
		}
	}
}

func TestActiveSupportsOrdering(t *testing.T) {
	var a activeSupports
	a.add(Support{Index: 1, Price: 50})
	a.add(Support{Index: 2, Price: 70})
	a.add(Support{Index: 3, Price: 60})
	a.add(Support{Index: 4, Price: 70})

	want := []int{4, 2, 3, 1}
	for _, idx := range want {
		top, ok := a.top()
		if !ok || top.Index != idx {
			t.Fatalf("top=%v ok=%v, want index %d", top, ok, idx)
		}
		a.popTop()
	}
	if _, ok := a.top(); ok {
		t.Fatalf("expected empty set")
	}
}
