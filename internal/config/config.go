// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultUserAgent is the browser identity presented to the catalog.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config captures every tunable of a harvest run loaded via Viper.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Store    StoreConfig    `mapstructure:"store"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CatalogConfig identifies the remote catalog being harvested.
type CatalogConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CrawlerConfig governs the worker pool and the crawl depths.
type CrawlerConfig struct {
	Workers        int           `mapstructure:"workers"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxPages       int           `mapstructure:"max_pages"`
	RefreshPages   int           `mapstructure:"refresh_pages"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	FetchDelay     time.Duration `mapstructure:"fetch_delay"`
}

// StoreConfig sets the primary snapshot and the tabular export paths.
type StoreConfig struct {
	SnapshotPath string `mapstructure:"snapshot_path"`
	CSVPath      string `mapstructure:"csv_path"`
}

// SheetsConfig targets the optional spreadsheet publisher.
type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
}

// PostgresConfig targets the optional relational mirror.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ArchiveConfig selects where timestamped snapshot copies are kept. The GCS
// bucket wins when both destinations are set.
type ArchiveConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// OpsConfig controls the health/metrics endpoint.
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key; empty defaults exist so HARVESTER_* env
// overrides bind even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.user_agent", defaultUserAgent)
	v.SetDefault("crawler.workers", 10)
	v.SetDefault("crawler.batch_size", 10)
	v.SetDefault("crawler.max_pages", 1000)
	v.SetDefault("crawler.refresh_pages", 10)
	v.SetDefault("crawler.request_timeout", 10*time.Second)
	v.SetDefault("crawler.fetch_delay", time.Duration(0))
	v.SetDefault("store.snapshot_path", "data/catalog.json")
	v.SetDefault("store.csv_path", "data/catalog.csv")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Sheet1")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "records")
	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("ops.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if u, err := url.Parse(c.Catalog.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an absolute URL, got %q", c.Catalog.BaseURL)
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.BatchSize <= 0 {
		return fmt.Errorf("crawler.batch_size must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.RefreshPages <= 0 || c.Crawler.RefreshPages > c.Crawler.MaxPages {
		return fmt.Errorf("crawler.refresh_pages must be between 1 and crawler.max_pages")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.FetchDelay < 0 {
		return fmt.Errorf("crawler.fetch_delay must be >= 0")
	}
	if c.Store.SnapshotPath == "" {
		return fmt.Errorf("store.snapshot_path is required")
	}
	if c.Store.CSVPath == "" {
		return fmt.Errorf("store.csv_path is required")
	}
	if (c.Sheets.CredentialsFile == "") != (c.Sheets.SpreadsheetID == "") {
		return fmt.Errorf("sheets.credentials_file and sheets.spreadsheet_id must be set together")
	}
	return nil
}

// SheetsEnabled reports whether the spreadsheet publisher is configured.
func (c Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsFile != "" && c.Sheets.SpreadsheetID != ""
}

// MirrorEnabled reports whether the Postgres mirror is configured.
func (c Config) MirrorEnabled() bool {
	return c.Postgres.DSN != ""
}

// ArchiveEnabled reports whether a snapshot archive destination is configured.
func (c Config) ArchiveEnabled() bool {
	return c.Archive.GCSBucket != "" || c.Archive.Dir != ""
}

// OpsEnabled reports whether the health/metrics endpoint is configured.
func (c Config) OpsEnabled() bool {
	return c.Ops.Addr != ""
}
