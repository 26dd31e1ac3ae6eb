package backtest

import (
	talib "github.com/markcheno/go-talib"
)

// FindSupports returns the plateau-inclusive local minima of prices over a
// symmetric window of radius window, ordered by index. Points closer than
// window to either end never qualify. A series shorter than 2*window+1 has no
// supports.
func FindSupports(prices []float64, window int) []Support {
	n := len(prices)
	if window < 1 || n < 2*window+1 {
		return nil
	}

	// lows[k] is the minimum of prices[k-2w .. k]; the window centered on i
	// therefore ends at k = i+w.
	lows := talib.Min(prices, 2*window+1)

	var out []Support
	for i := window; i < n-window; i++ {
		if prices[i] <= lows[i+window] {
			out = append(out, Support{Index: i, Price: prices[i]})
		}
	}
	return out
}

// BuildSupportLine spreads each support price forward up to window steps, then
// fills the remaining gaps backward up to window steps. Display only.
func BuildSupportLine(n int, supports []Support, window int) []NullFloat {
	line := make([]NullFloat, n)
	for _, s := range supports {
		if s.Index >= 0 && s.Index < n {
			line[s.Index] = Some(s.Price)
		}
	}
	if window <= 0 {
		return line
	}

	// forward fill
	var last NullFloat
	gap := 0
	for i := 0; i < n; i++ {
		if line[i].Valid {
			last, gap = line[i], 0
			continue
		}
		if !last.Valid {
			continue
		}
		gap++
		if gap <= window {
			line[i] = last
		}
	}

	// backward fill over the forward-filled series
	last, gap = NullFloat{}, 0
	for i := n - 1; i >= 0; i-- {
		if line[i].Valid {
			last, gap = line[i], 0
			continue
		}
		if !last.Valid {
			continue
		}
		gap++
		if gap <= window {
			line[i] = last
		}
	}
	return line
}
