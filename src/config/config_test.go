package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("name: demo\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DataSource.DefaultTicker != "AAPL" {
		t.Errorf("default ticker = %q, want AAPL", cfg.DataSource.DefaultTicker)
	}
	if cfg.DataSource.DefaultStart != "2018-01-01" || cfg.DataSource.DefaultEnd != "2025-01-01" {
		t.Errorf("default range = %s..%s", cfg.DataSource.DefaultStart, cfg.DataSource.DefaultEnd)
	}
	if cfg.Analysis.MinRows != 30 || cfg.Analysis.TableRows != 10 {
		t.Errorf("analysis defaults = %+v", cfg.Analysis)
	}
	if cfg.Storage.DBType != "sqlite" || cfg.Storage.DBPath == "" {
		t.Errorf("storage defaults = %+v", cfg.Storage)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"low port", "port: 80\n"},
		{"unknown db", "storage:\n  db_type: mongo\n"},
		{"postgres without dsn", "storage:\n  db_type: postgres\n"},
		{"csv without dir", "data_source:\n  sources: [csv]\n"},
		{"unknown source", "data_source:\n  sources: [bloomberg]\n"},
		{"inverted range", "data_source:\n  default_start: \"2024-01-01\"\n  default_end: \"2023-01-01\"\n"},
		{"watchlist without symbols", "watchlist:\n  enabled: true\n"},
		{"events without url", "events:\n  enabled: true\n"},
		{"five field cron", "watchlist:\n  cron: \"30 22 * * 1-5\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected validation error for %q", tc.yaml)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Watchlist.Symbols = []string{"MSFT"}
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if len(loaded.Watchlist.Symbols) != 1 || loaded.Watchlist.Symbols[0] != "MSFT" {
		t.Errorf("watchlist symbols = %v", loaded.Watchlist.Symbols)
	}
}

func TestDefaultFileLoads(t *testing.T) {
	path := filepath.Join("..", "..", "config", "default.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("default config not found: %v", err)
	}
	if _, err := NewConfig(path); err != nil {
		t.Fatalf("default.yaml invalid: %v", err)
	}
}

func TestWatchlistSymbolsConcurrentSave(t *testing.T) {
	c := Default()
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				c.SetWatchlistSymbols([]string{"AAPL", "MSFT"})
				_ = c.WatchlistSymbols()
			}
		}()
	}
	for j := 0; j < 10; j++ {
		if err := c.Save(path); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	wg.Wait()

	got := c.WatchlistSymbols()
	if len(got) != 2 || got[0] != "AAPL" {
		t.Fatalf("symbols = %v", got)
	}
	got[0] = "CHANGED"
	if c.WatchlistSymbols()[0] != "AAPL" {
		t.Error("WatchlistSymbols must return a copy")
	}
}
