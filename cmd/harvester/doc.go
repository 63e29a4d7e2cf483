// Package main hosts the catalog harvester entrypoint.
//
// Architecture overview:
//   - Planning: internal/crawl.Planner probes page 1 of the catalog and compares it against the stored
//     snapshot. Unseen records widen the run to the full page budget; an unchanged catalog narrows it to a
//     short refresh window. An empty first page ends the run immediately.
//   - Crawl pipeline: a fixed pool of workers (config crawler.workers) pulls page numbers from a bounded
//     queue in batches of crawler.batch_size. Each worker fetches via the Colly-based fetcher, extracts
//     records with goquery, and reports empty pages so the shared stop flag halts dispatch past the
//     catalog's end. Batches join on a barrier, bounding overshoot to a single batch.
//   - Merge & persistence: scraped records override snapshot entries with the same ID; records absent from
//     this run survive untouched. The merged snapshot is written atomically to JSON and exported to CSV
//     (both fatal on failure), then pushed best-effort to Google Sheets (full replace), upserted into
//     Postgres, and archived as a timestamped copy to a local directory or GCS bucket.
//   - Configuration & plumbing: Viper populates config from file and HARVESTER_* env vars; zap provides
//     structured logging; Prometheus counters track pages, records, errors and run outcomes, exported on
//     the optional ops listener alongside /healthz and /readyz.
//
// Operational notes:
//   - Concurrency model: single-run batch process, not a resident service. Page order within a batch is
//     not deterministic; the final sort (page ascending, ID descending) restores a stable output order.
//   - Politeness: crawler.fetch_delay inserts a fixed pause after every fetch; crawler.request_timeout
//     bounds each request. No robots.txt handling is performed.
//   - Shutdown: SIGINT/SIGTERM cancels the crawl; pages already collected still merge and persist, so an
//     interrupted run degrades to a shallower harvest rather than losing data.
//
// Quick checklist:
//   - Required config: catalog.base_url (HARVESTER_CATALOG_BASE_URL). Everything else defaults: ten
//     workers, batches of ten, up to a thousand pages, snapshot at data/catalog.json.
//   - Optional stages: sheets.credentials_file + sheets.spreadsheet_id, postgres.dsn, archive.dir or
//     archive.gcs_bucket, ops.addr.
//   - Run locally: go run ./cmd/harvester -config config.yaml (or rely solely on env overrides).
package main
