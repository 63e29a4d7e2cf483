// Package main wires together the catalog harvester binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/clipindex/harvester/internal/archive"
	"github.com/clipindex/harvester/internal/clock/system"
	"github.com/clipindex/harvester/internal/config"
	"github.com/clipindex/harvester/internal/crawl"
	"github.com/clipindex/harvester/internal/extractor"
	"github.com/clipindex/harvester/internal/fetcher"
	"github.com/clipindex/harvester/internal/id/uuid"
	"github.com/clipindex/harvester/internal/logging"
	"github.com/clipindex/harvester/internal/ops"
	"github.com/clipindex/harvester/internal/sheets"
	"github.com/clipindex/harvester/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	runErr := run(cfg, logger)
	if syncErr := logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetch := fetcher.New(fetcher.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
		Timeout:   cfg.Crawler.RequestTimeout,
	})
	extract, err := extractor.New(cfg.Catalog.BaseURL)
	if err != nil {
		logger.Error("extractor init failed", zap.Error(err))
		return err
	}

	snapshots := store.NewSnapshotStore(cfg.Store.SnapshotPath)
	table := store.NewCSVWriter(cfg.Store.CSVPath)

	// The spreadsheet, mirror and archive stages are best-effort; a failed
	// init disables the stage instead of aborting the run.
	var publisher crawl.SheetPublisher
	if cfg.SheetsEnabled() {
		p, err := sheets.NewPublisher(ctx, sheets.Config{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
		})
		if err != nil {
			logger.Warn("sheets publisher init failed, stage disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	var mirror crawl.RecordMirror
	if cfg.MirrorEnabled() {
		m, err := store.NewMirror(ctx, store.MirrorConfig{
			DSN:   cfg.Postgres.DSN,
			Table: cfg.Postgres.Table,
		})
		if err != nil {
			logger.Warn("postgres mirror init failed, stage disabled", zap.Error(err))
		} else {
			defer m.Close()
			mirror = m
		}
	}

	var archiver crawl.SnapshotArchiver
	switch {
	case cfg.Archive.GCSBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Warn("gcs client init failed, stage disabled", zap.Error(err))
			break
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("gcs client close failed", zap.Error(err))
			}
		}()
		blobs, err := archive.NewGCSStore(client, cfg.Archive.GCSBucket)
		if err != nil {
			logger.Warn("gcs archive init failed, stage disabled", zap.Error(err))
			break
		}
		archiver = archive.New(blobs, system.New())
	case cfg.Archive.Dir != "":
		blobs, err := archive.NewLocalStore(cfg.Archive.Dir)
		if err != nil {
			logger.Warn("local archive init failed, stage disabled", zap.Error(err))
			break
		}
		archiver = archive.New(blobs, system.New())
	}

	runner := crawl.NewRunner(
		crawl.Config{
			Workers:      cfg.Crawler.Workers,
			BatchSize:    cfg.Crawler.BatchSize,
			MaxPages:     cfg.Crawler.MaxPages,
			RefreshPages: cfg.Crawler.RefreshPages,
			FetchDelay:   cfg.Crawler.FetchDelay,
		},
		fetch,
		extract,
		snapshots,
		table,
		publisher,
		mirror,
		archiver,
		uuid.New(),
		logger.Named("run"),
	)

	var srv *http.Server
	if cfg.OpsEnabled() {
		srv = &http.Server{
			Addr:              cfg.Ops.Addr,
			Handler:           ops.NewServer(logger.Named("ops")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.String("addr", cfg.Ops.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
	}

	runErr := runner.Run(ctx)
	if runErr != nil {
		logger.Error("harvest failed", zap.Error(runErr))
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", zap.Error(err))
		}
	}
	return runErr
}
