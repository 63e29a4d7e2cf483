package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
catalog:
  base_url: https://clips.example.com
  user_agent: harvest-agent
crawler:
  workers: 6
  batch_size: 20
  max_pages: 500
  refresh_pages: 5
  request_timeout: 15s
  fetch_delay: 250ms
store:
  snapshot_path: out/catalog.json
  csv_path: out/catalog.csv
sheets:
  credentials_file: creds.json
  spreadsheet_id: sheet-123
  sheet_name: Catalog
postgres:
  dsn: postgres://localhost/harvester
  table: clips
archive:
  dir: out/archive
ops:
  addr: ":9090"
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Catalog.BaseURL != "https://clips.example.com" {
		t.Fatalf("expected base URL override, got %q", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.UserAgent != "harvest-agent" {
		t.Fatalf("expected user agent override, got %q", cfg.Catalog.UserAgent)
	}
	if cfg.Crawler.Workers != 6 || cfg.Crawler.BatchSize != 20 || cfg.Crawler.MaxPages != 500 {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Crawler.RequestTimeout != 15*time.Second {
		t.Fatalf("expected request timeout 15s, got %v", cfg.Crawler.RequestTimeout)
	}
	if cfg.Crawler.FetchDelay != 250*time.Millisecond {
		t.Fatalf("expected fetch delay 250ms, got %v", cfg.Crawler.FetchDelay)
	}
	if cfg.Store.SnapshotPath != "out/catalog.json" || cfg.Store.CSVPath != "out/catalog.csv" {
		t.Fatalf("expected store overrides to apply: %+v", cfg.Store)
	}
	if !cfg.SheetsEnabled() || cfg.Sheets.SheetName != "Catalog" {
		t.Fatalf("expected sheets to be enabled with custom name: %+v", cfg.Sheets)
	}
	if !cfg.MirrorEnabled() || cfg.Postgres.Table != "clips" {
		t.Fatalf("expected postgres mirror to be enabled: %+v", cfg.Postgres)
	}
	if !cfg.ArchiveEnabled() || !cfg.OpsEnabled() {
		t.Fatalf("expected archive and ops to be enabled")
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging to be disabled")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
catalog:
  base_url: https://clips.example.com
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawler.Workers != 10 || cfg.Crawler.BatchSize != 10 {
		t.Fatalf("expected pool defaults, got %+v", cfg.Crawler)
	}
	if cfg.Crawler.MaxPages != 1000 || cfg.Crawler.RefreshPages != 10 {
		t.Fatalf("expected depth defaults, got %+v", cfg.Crawler)
	}
	if cfg.Crawler.RequestTimeout != 10*time.Second || cfg.Crawler.FetchDelay != 0 {
		t.Fatalf("expected timing defaults, got %+v", cfg.Crawler)
	}
	if !strings.Contains(cfg.Catalog.UserAgent, "Mozilla/5.0") {
		t.Fatalf("expected browser-like default user agent, got %q", cfg.Catalog.UserAgent)
	}
	if cfg.Store.SnapshotPath != "data/catalog.json" || cfg.Store.CSVPath != "data/catalog.csv" {
		t.Fatalf("expected store defaults, got %+v", cfg.Store)
	}
	if cfg.SheetsEnabled() || cfg.MirrorEnabled() || cfg.ArchiveEnabled() || cfg.OpsEnabled() {
		t.Fatal("expected optional collaborators to be disabled by default")
	}
	if !cfg.Logging.Development {
		t.Fatal("expected development logging by default")
	}
}

func TestLoadMissingBaseURLFails(t *testing.T) {
	t.Parallel()

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "catalog.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Catalog: CatalogConfig{BaseURL: "https://clips.example.com"},
		Crawler: CrawlerConfig{
			Workers:        10,
			BatchSize:      10,
			MaxPages:       1000,
			RefreshPages:   10,
			RequestTimeout: 10 * time.Second,
		},
		Store: StoreConfig{SnapshotPath: "data/catalog.json", CSVPath: "data/catalog.csv"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "relative base url",
			cfg: func() Config {
				c := base
				c.Catalog.BaseURL = "clips.example.com"
				return c
			}(),
			want: "catalog.base_url",
		},
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Crawler.Workers = 0
				return c
			}(),
			want: "crawler.workers",
		},
		{
			name: "invalid batch size",
			cfg: func() Config {
				c := base
				c.Crawler.BatchSize = -1
				return c
			}(),
			want: "crawler.batch_size",
		},
		{
			name: "refresh deeper than ceiling",
			cfg: func() Config {
				c := base
				c.Crawler.RefreshPages = c.Crawler.MaxPages + 1
				return c
			}(),
			want: "crawler.refresh_pages",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Crawler.RequestTimeout = 0
				return c
			}(),
			want: "crawler.request_timeout",
		},
		{
			name: "negative fetch delay",
			cfg: func() Config {
				c := base
				c.Crawler.FetchDelay = -time.Second
				return c
			}(),
			want: "crawler.fetch_delay",
		},
		{
			name: "missing snapshot path",
			cfg: func() Config {
				c := base
				c.Store.SnapshotPath = ""
				return c
			}(),
			want: "store.snapshot_path",
		},
		{
			name: "half-configured sheets",
			cfg: func() Config {
				c := base
				c.Sheets.SpreadsheetID = "sheet-123"
				return c
			}(),
			want: "sheets.credentials_file",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
