package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"basetrader/fetcher"
)

// Loader provides daily bars for a ticker. *fetcher.Collector satisfies it.
type Loader interface {
	GetHistorical(ctx context.Context, source, ticker string, start, end time.Time) ([]fetcher.KLine, error)
}

// Report is a Result together with the data window it was run on.
type Report struct {
	Source  string         `json:"source"`
	Ticker  string         `json:"ticker"`
	Start   string         `json:"start"`
	End     string         `json:"end"`
	Bars    int            `json:"bars"`
	Display []StatsDisplay `json:"display"`
	*Result
}

type Runner struct {
	loader Loader
}

func NewRunner(loader Loader) *Runner {
	return &Runner{loader: loader}
}

func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("runner has no data loader")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	trader, err := NewTrader(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	kl, err := r.loader.GetHistorical(ctx, cfg.Source, cfg.Ticker, cfg.Start, cfg.End)
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", cfg.Ticker, cfg.Source, err)
	}
	series, err := SeriesFromKLines(kl)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := trader.Execute(series)
	if err != nil {
		return nil, err
	}
	log.Printf("[BT] %s %s: %d bars, %d supports, %d trades in %s\n",
		cfg.Source, cfg.Ticker, len(series), len(res.Supports), len(res.Trades), time.Since(start).Round(time.Millisecond))

	return &Report{
		Source:  cfg.Source,
		Ticker:  cfg.Ticker,
		Start:   cfg.Start.Format("2006-01-02"),
		End:     cfg.End.Format("2006-01-02"),
		Bars:    len(series),
		Display: res.Stats.Display(),
		Result:  res,
	}, nil
}

// SeriesFromKLines converts fetched bars in their given order. Ordering is
// checked later by Execute.
func SeriesFromKLines(kl []fetcher.KLine) ([]PricePoint, error) {
	series := make([]PricePoint, 0, len(kl))
	for i, k := range kl {
		t, err := k.Time()
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q at index %d", ErrUnorderedSeries, k.Date, i)
		}
		series = append(series, PricePoint{
			Date:   t,
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		})
	}
	return series, nil
}

func WriteResultJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
