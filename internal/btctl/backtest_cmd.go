package btctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"basetrader/backtest"
	"basetrader/fetcher"
	"basetrader/internal/terminalui"
)

type backtestOptions struct {
	configPath string
	configSet  bool
	outPath    string
	csvPath    string
	chartDir   string
	maxTrades  int

	source  string
	ticker  string
	start   string
	end     string
	dataDir string
}

func loadRunConfig(opts backtestOptions) (backtest.RunConfig, error) {
	cfg := backtest.DefaultRunConfig()
	if _, err := os.Stat(opts.configPath); err == nil {
		c, err := backtest.LoadRunConfig(opts.configPath)
		if err != nil {
			return backtest.RunConfig{}, err
		}
		cfg = c
	} else if opts.configSet || !errors.Is(err, os.ErrNotExist) {
		return backtest.RunConfig{}, fmt.Errorf("read config: %w", err)
	} else {
		log.Printf("[BT] %s not found, using default parameters\n", opts.configPath)
	}

	if s := strings.TrimSpace(opts.source); s != "" {
		cfg.Source = strings.ToLower(s)
	}
	if s := strings.TrimSpace(opts.ticker); s != "" {
		cfg.Ticker = s
	}
	if s := strings.TrimSpace(opts.dataDir); s != "" {
		cfg.DataDir = s
	}
	if opts.start != "" {
		t, err := backtest.ParseDate(opts.start)
		if err != nil {
			return backtest.RunConfig{}, fmt.Errorf("%w: invalid -start: %v", backtest.ErrInvalidConfig, err)
		}
		cfg.Start = t
	}
	if opts.end != "" {
		t, err := backtest.ParseDate(opts.end)
		if err != nil {
			return backtest.RunConfig{}, fmt.Errorf("%w: invalid -end: %v", backtest.ErrInvalidConfig, err)
		}
		cfg.End = t
	}
	return cfg, cfg.Validate()
}

func runBacktest(opts backtestOptions) error {
	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	runner := backtest.NewRunner(fetcher.NewCollector(cfg.DataDir))
	rep, err := runner.Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	terminalui.Render(os.Stdout, terminalui.SnapshotFromReport(rep, opts.maxTrades))

	if opts.outPath != "" {
		if err := writeFile(opts.outPath, func(w io.Writer) error { return backtest.WriteResultJSON(w, rep) }); err != nil {
			return err
		}
		log.Printf("[BT] report written to %s\n", opts.outPath)
	}
	if opts.csvPath != "" {
		if err := writeFile(opts.csvPath, func(w io.Writer) error { return backtest.WriteRowsCSV(w, rep.Rows) }); err != nil {
			return err
		}
		log.Printf("[BT] rows written to %s\n", opts.csvPath)
	}
	if opts.chartDir != "" {
		if err := writeCharts(opts.chartDir, rep); err != nil {
			return err
		}
	}
	return nil
}

func writeCharts(dir string, rep *backtest.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := safeFileName(rep.Ticker)

	signals, err := backtest.RenderSignalsSVG(rep.Ticker, rep.Result, backtest.SVGChartOptions{})
	if err != nil {
		return fmt.Errorf("render signals chart: %w", err)
	}
	equity, err := backtest.RenderEquitySVG(rep.Ticker, rep.Result, backtest.SVGChartOptions{})
	if err != nil {
		return fmt.Errorf("render equity chart: %w", err)
	}

	for name, b := range map[string][]byte{
		base + "_signals.svg": signals,
		base + "_equity.svg":  equity,
	} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return err
		}
		log.Printf("[BT] chart written to %s\n", p)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ensureParentDir(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil
	}
	dir := filepath.Dir(p)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "chart"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
