package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clipindex/harvester/internal/catalog"
)

// SnapshotStore loads and persists the primary record snapshot.
type SnapshotStore interface {
	Load() (catalog.Snapshot, error)
	Save(records []catalog.Record) error
}

// TableWriter mirrors the snapshot to a tabular export.
type TableWriter interface {
	Write(records []catalog.Record) error
}

// SheetPublisher replaces the contents of an external spreadsheet.
type SheetPublisher interface {
	Publish(ctx context.Context, records []catalog.Record) error
}

// RecordMirror upserts the snapshot into a relational store.
type RecordMirror interface {
	Upsert(ctx context.Context, records []catalog.Record) error
}

// SnapshotArchiver stores a point-in-time copy of the snapshot.
type SnapshotArchiver interface {
	Archive(ctx context.Context, runID string, records []catalog.Record) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Config carries the crawl depths and pool tunables for a run.
type Config struct {
	Workers      int
	BatchSize    int
	MaxPages     int
	RefreshPages int
	FetchDelay   time.Duration
}

// Runner executes one harvest run end to end: plan, crawl, merge, persist.
type Runner struct {
	cfg       Config
	fetcher   PageFetcher
	extract   RecordExtractor
	snapshots SnapshotStore
	table     TableWriter
	publisher SheetPublisher
	mirror    RecordMirror
	archiver  SnapshotArchiver
	ids       IDGenerator
	logger    *zap.Logger
}

// NewRunner constructs a Runner. publisher, mirror and archiver may be nil;
// the corresponding pipeline stages are skipped.
func NewRunner(
	cfg Config,
	fetcher PageFetcher,
	extract RecordExtractor,
	snapshots SnapshotStore,
	table TableWriter,
	publisher SheetPublisher,
	mirror RecordMirror,
	archiver SnapshotArchiver,
	ids IDGenerator,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		extract:   extract,
		snapshots: snapshots,
		table:     table,
		publisher: publisher,
		mirror:    mirror,
		archiver:  archiver,
		ids:       ids,
		logger:    logger,
	}
}

// Run performs a complete harvest. The returned error is fatal only when the
// primary store could not be written; spreadsheet, mirror and archive
// failures are logged and absorbed.
func (r *Runner) Run(ctx context.Context) error {
	runID, err := r.ids.NewID()
	if err != nil {
		return fmt.Errorf("mint run id: %w", err)
	}
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("run started")

	snapshot, err := r.snapshots.Load()
	if err != nil {
		logger.Warn("snapshot load failed, starting from empty", zap.Error(err))
		snapshot = catalog.Snapshot{}
	}
	logger.Info("snapshot loaded", zap.Int("records", len(snapshot)))

	session := NewSession(r.cfg.BatchSize)
	pool := NewPool(
		PoolConfig{Workers: r.cfg.Workers, FetchDelay: r.cfg.FetchDelay},
		session,
		r.fetcher,
		r.extract,
		logger.Named("pool"),
	)
	pool.Start(ctx)

	planner := NewPlanner(
		PlannerConfig{MaxPages: r.cfg.MaxPages, RefreshPages: r.cfg.RefreshPages},
		r.fetcher,
		r.extract,
		logger.Named("planner"),
	)
	plan := planner.Plan(ctx, session, snapshot)

	r.crawl(ctx, logger, session, pool, plan)

	session.Close()
	pool.Wait()

	scraped := session.Records()
	counters := session.Counters()
	snapshot.Merge(scraped)
	logger.Info("crawl finished",
		zap.Int64("pages_fetched", counters.PagesFetched),
		zap.Int64("pages_failed", counters.PagesFailed),
		zap.Int("scraped_records", len(scraped)),
		zap.Int("snapshot_records", len(snapshot)),
		zap.Int("terminal_page", session.TerminalPage()),
	)

	if err := r.persist(ctx, logger, runID, snapshot); err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return err
	}
	runsTotal.WithLabelValues("success").Inc()
	logger.Info("run complete")
	return nil
}

// crawl dispatches batches starting at page 2; the planner already consumed
// page 1. The stop flag is re-checked before every batch, bounding overshoot
// past the catalog end to a single batch.
func (r *Runner) crawl(ctx context.Context, logger *zap.Logger, session *Session, pool *Pool, plan Plan) {
	next := 2
	for next <= plan.Pages && !session.Stopped() {
		if ctx.Err() != nil {
			logger.Warn("crawl interrupted", zap.Error(ctx.Err()))
			return
		}
		last := min(next+r.cfg.BatchSize-1, plan.Pages)
		logger.Info("dispatching batch", zap.Int("first", next), zap.Int("last", last))
		if err := pool.Dispatch(ctx, next, last); err != nil {
			logger.Warn("batch aborted", zap.Error(err))
			return
		}
		next = last + 1
	}
}

func (r *Runner) persist(ctx context.Context, logger *zap.Logger, runID string, snapshot catalog.Snapshot) error {
	records := snapshot.Sorted()

	if err := r.snapshots.Save(records); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := r.table.Write(records); err != nil {
		return fmt.Errorf("write tabular export: %w", err)
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, records); err != nil {
			logger.Warn("spreadsheet publish failed", zap.Error(err))
		}
	}
	if r.mirror != nil {
		if err := r.mirror.Upsert(ctx, records); err != nil {
			logger.Warn("database mirror failed", zap.Error(err))
		}
	}
	if r.archiver != nil {
		uri, err := r.archiver.Archive(ctx, runID, records)
		if err != nil {
			logger.Warn("snapshot archive failed", zap.Error(err))
		} else {
			logger.Info("snapshot archived", zap.String("uri", uri))
		}
	}
	return nil
}
