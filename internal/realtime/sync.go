// Package realtime keeps the daily bar cache warm for a watch list so that
// backtests on those tickers are served from disk.
package realtime

import (
	"context"
	"log"
	"strings"
	"time"

	"basetrader/backtest"
	"basetrader/config"
	"basetrader/trading"
)

type Logger interface {
	Printf(format string, v ...any)
}

type SyncOptions struct {
	Logger Logger
	Quiet  bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Watch is one watch-list entry. Entries are written "ticker" or
// "source:ticker" in config.
type Watch struct {
	Source string
	Ticker string
}

// ParseWatchList resolves entries against the default source.
func ParseWatchList(entries []string, defaultSource string) []Watch {
	var out []Watch
	for _, e := range entries {
		s := strings.TrimSpace(e)
		if s == "" {
			continue
		}
		w := Watch{Source: strings.ToLower(defaultSource), Ticker: s}
		if src, ticker, ok := strings.Cut(s, ":"); ok && src != "" && ticker != "" {
			w.Source = strings.ToLower(strings.TrimSpace(src))
			w.Ticker = strings.TrimSpace(ticker)
		}
		out = append(out, w)
	}
	return out
}

// RunDataSync refreshes the cache once immediately, then every
// cfg.RefreshInterval until stop is closed.
func RunDataSync(cfg *config.Config, loader backtest.Loader, stop <-chan struct{}, opt SyncOptions) {
	logger := opt.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}

	watch := ParseWatchList(cfg.WatchTickers, cfg.Source)
	if len(watch) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	if !opt.Quiet {
		logger.Printf("[sync] initial fetch of %d tickers...", len(watch))
	}
	SyncOnce(ctx, loader, watch, cfg.LookbackDays, now(), logger, opt.Quiet)

	refreshTicker := time.NewTicker(cfg.RefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-stop:
			if !opt.Quiet {
				logger.Printf("[sync] stop")
			}
			return

		case <-refreshTicker.C:
			SyncOnce(ctx, loader, watch, cfg.LookbackDays, now(), logger, opt.Quiet)
		}
	}
}

// SyncOnce loads [now-lookback, now] for each entry whose market is closed
// and reports how many loads succeeded and failed. Entries still in session
// are skipped and counted in neither.
func SyncOnce(ctx context.Context, loader backtest.Loader, watch []Watch, lookbackDays int, now time.Time, logger Logger, quiet bool) (ok, failed int) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	start := end.AddDate(0, 0, -lookbackDays)

	for _, w := range watch {
		if ctx.Err() != nil {
			return ok, failed
		}
		if trading.SessionOpen(w.Source, now) {
			continue
		}
		kl, err := loader.GetHistorical(ctx, w.Source, w.Ticker, start, end)
		if err != nil {
			failed++
			if !quiet {
				logger.Printf("[sync] %s %s failed: %v", w.Source, w.Ticker, err)
			}
			continue
		}
		ok++
		if !quiet {
			logger.Printf("[sync] %s %s: %d bars", w.Source, w.Ticker, len(kl))
		}
	}
	return ok, failed
}
