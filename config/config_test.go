package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestGetConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "server:\n  port: 8080\ndata:\n  dir: /tmp/bars\n  source: EastMoney\nstore:\n  path: /tmp/runs.json\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BASETRADER_PORT", "")
	cfg := GetConfig(path)
	if cfg.Port != 8080 || cfg.DataDir != "/tmp/bars" || cfg.Source != "eastmoney" || cfg.StorePath != "/tmp/runs.json" {
		t.Fatalf("file values not applied: %#v", cfg)
	}

	t.Setenv("BASETRADER_PORT", "9001")
	t.Setenv("BASETRADER_DATA_DIR", "/var/bars")
	t.Setenv("BASETRADER_STORE", "")
	cfg = GetConfig(path)
	if cfg.Port != 9001 || cfg.DataDir != "/var/bars" || cfg.StorePath != "" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
}

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("BASETRADER_PORT", "not-a-port")
	cfg := GetConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Port != DefaultConfig.Port || cfg.Source != "yahoo" {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestLoadFromFileSyncSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "sync:\n  tickers: [BTC-USD, \" \", \"eastmoney:600519\"]\n  interval: 30m\n  lookback_days: 90\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !reflect.DeepEqual(cfg.WatchTickers, []string{"BTC-USD", "eastmoney:600519"}) {
		t.Fatalf("tickers=%v", cfg.WatchTickers)
	}
	if cfg.RefreshInterval != 30*time.Minute || cfg.LookbackDays != 90 {
		t.Fatalf("interval=%v lookback=%d", cfg.RefreshInterval, cfg.LookbackDays)
	}

	if err := os.WriteFile(path, []byte("sync:\n  interval: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected an error for a bad interval")
	}
}
