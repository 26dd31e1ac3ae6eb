package backtest

import "sort"

// activeSupports holds confirmed, unbought supports in ascending price order.
// Equal prices keep activation order, so the latest activated one is on top.
type activeSupports struct {
	items []Support
}

func (a *activeSupports) add(s Support) {
	i := sort.Search(len(a.items), func(i int) bool { return a.items[i].Price > s.Price })
	a.items = append(a.items, Support{})
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = s
}

func (a *activeSupports) top() (Support, bool) {
	if len(a.items) == 0 {
		return Support{}, false
	}
	return a.items[len(a.items)-1], true
}

func (a *activeSupports) popTop() Support {
	s := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	return s
}

// boughtSupports is the FIFO of supports backing open positions.
type boughtSupports struct {
	items []Support
}

func (q *boughtSupports) push(s Support) { q.items = append(q.items, s) }

func (q *boughtSupports) size() int { return len(q.items) }

func (q *boughtSupports) front() (Support, bool) {
	if len(q.items) == 0 {
		return Support{}, false
	}
	return q.items[0], true
}

func (q *boughtSupports) popFront() Support {
	s := q.items[0]
	q.items = q.items[1:]
	return s
}

// Signals is the output of the signal generator, one entry per step.
type Signals struct {
	Position    []float64
	Held        []int // open slots after the step, always |bought queue|
	BoughtPrice []NullFloat
	SoldPrice   []NullFloat
	Trades      []Trade
}

// GenerateSignals runs the support-break state machine over series.
// supports must be ordered by index, as FindSupports returns them.
func GenerateSignals(series []PricePoint, supports []Support, cfg Config) (Signals, error) {
	if err := cfg.Validate(); err != nil {
		return Signals{}, err
	}

	n := len(series)
	out := Signals{
		Position:    make([]float64, n),
		Held:        make([]int, n),
		BoughtPrice: make([]NullFloat, n),
		SoldPrice:   make([]NullFloat, n),
	}

	dip := cfg.dipToBuy()
	hype := cfg.hypeToSell()
	unit := float64(cfg.MaxPos)

	var (
		active  activeSupports
		bought  boughtSupports
		pending = 0
	)

	for t := 1; t < n; t++ {
		for pending < len(supports) && supports[pending].Index < t {
			active.add(supports[pending])
			pending++
		}

		price := series[t].Price(cfg.Price)
		date := series[t].Date.Format("2006-01-02")

		if top, ok := active.top(); ok && bought.size() < cfg.MaxPos && price < top.Price*dip {
			s := active.popTop()
			bought.push(s)
			out.BoughtPrice[t] = Some(price)
			out.Trades = append(out.Trades, Trade{
				Index: t, Date: date, Action: ActionBuy, Price: price,
				SupportIndex: s.Index, SupportPrice: s.Price,
			})
		}

		if front, ok := bought.front(); ok && price > front.Price*hype {
			s := bought.popFront()
			out.SoldPrice[t] = Some(price)
			out.Trades = append(out.Trades, Trade{
				Index: t, Date: date, Action: ActionSell, Price: price,
				SupportIndex: s.Index, SupportPrice: s.Price,
			})
		}

		out.Held[t] = bought.size()
		out.Position[t] = float64(bought.size()) / unit
	}
	return out, nil
}
