package backtest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type YAMLConfig struct {
	Data struct {
		Source  string `yaml:"source"`
		Ticker  string `yaml:"ticker"`
		Start   string `yaml:"start"`
		End     string `yaml:"end"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"data"`

	Strategy struct {
		Price        string   `yaml:"price"`
		ValidDays    *int     `yaml:"valid_days"`
		BreakSupport *float64 `yaml:"break_support"`
		BreakResist  *float64 `yaml:"break_resist"`
		MaxPos       *int     `yaml:"max_pos"`
		InitCash     *float64 `yaml:"init_cash"`
	} `yaml:"strategy"`
}

// RunConfig describes one backtest: where the bars come from and how to trade them.
type RunConfig struct {
	Source  string    `json:"source"`
	Ticker  string    `json:"ticker"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	DataDir string    `json:"data_dir"`

	Strategy Config `json:"strategy"`
}

func DefaultRunConfig() RunConfig {
	end := time.Now().In(time.Local)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.Local)
	return RunConfig{
		Source:   "yahoo",
		Ticker:   "BTC-USD",
		Start:    end.AddDate(-3, 0, 0),
		End:      end,
		DataDir:  "data",
		Strategy: DefaultConfig(),
	}
}

// Validate checks the data window and the strategy parameters.
func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.Ticker) == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidConfig)
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidConfig)
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidConfig,
			c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	}
	return c.Strategy.Validate()
}

func LoadRunConfig(path string) (RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read config: %w", err)
	}
	return ParseRunConfig(raw)
}

// ParseRunConfig overlays a backtest YAML document on DefaultRunConfig.
func ParseRunConfig(raw []byte) (RunConfig, error) {
	var yc YAMLConfig
	if err := yaml.Unmarshal(raw, &yc); err != nil {
		return RunConfig{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := DefaultRunConfig()

	if s := strings.TrimSpace(yc.Data.Source); s != "" {
		cfg.Source = strings.ToLower(s)
	}
	if s := strings.TrimSpace(yc.Data.Ticker); s != "" {
		cfg.Ticker = s
	}
	if s := strings.TrimSpace(yc.Data.DataDir); s != "" {
		cfg.DataDir = s
	}
	if yc.Data.Start != "" {
		t, err := ParseDate(yc.Data.Start)
		if err != nil {
			return RunConfig{}, fmt.Errorf("%w: invalid data.start: %v", ErrInvalidConfig, err)
		}
		cfg.Start = t
	}
	if yc.Data.End != "" {
		t, err := ParseDate(yc.Data.End)
		if err != nil {
			return RunConfig{}, fmt.Errorf("%w: invalid data.end: %v", ErrInvalidConfig, err)
		}
		cfg.End = t
	}

	st := yc.Strategy
	if st.Price != "" {
		p, ok := ParsePriceField(st.Price)
		if !ok {
			return RunConfig{}, fmt.Errorf("%w: %q", ErrUnknownPriceField, st.Price)
		}
		cfg.Strategy.Price = p
	}
	if st.ValidDays != nil {
		cfg.Strategy.ValidDays = *st.ValidDays
	}
	if st.BreakSupport != nil {
		cfg.Strategy.BreakSupport = *st.BreakSupport
	}
	if st.BreakResist != nil {
		cfg.Strategy.BreakResist = *st.BreakResist
	}
	if st.MaxPos != nil {
		cfg.Strategy.MaxPos = *st.MaxPos
	}
	if st.InitCash != nil {
		cfg.Strategy.InitCash = *st.InitCash
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// ParseDate parses YYYY-MM-DD in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
}
