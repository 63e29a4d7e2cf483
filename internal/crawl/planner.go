package crawl

import (
	"context"

	"go.uber.org/zap"

	"github.com/clipindex/harvester/internal/catalog"
)

// Plan is the page budget chosen for a run.
type Plan struct {
	// Pages is the highest page index the run may visit, page 1 included.
	Pages int
	// NewContent records whether the probe saw an ID missing from the
	// snapshot.
	NewContent bool
}

// PlannerConfig carries the two crawl depths the planner chooses between.
type PlannerConfig struct {
	// MaxPages is the full-crawl ceiling used when new content appears.
	MaxPages int
	// RefreshPages is the shallow depth used to refresh volatile counters
	// when the front page holds nothing new.
	RefreshPages int
}

// Planner decides how deep a run must crawl. The catalog grows only at the
// front, so one synchronous probe of page 1 is enough to tell a full crawl
// from a counter refresh.
type Planner struct {
	cfg     PlannerConfig
	fetcher PageFetcher
	extract RecordExtractor
	logger  *zap.Logger
}

// NewPlanner constructs a Planner.
func NewPlanner(cfg PlannerConfig, fetcher PageFetcher, extract RecordExtractor, logger *zap.Logger) *Planner {
	return &Planner{
		cfg:     cfg,
		fetcher: fetcher,
		extract: extract,
		logger:  logger,
	}
}

// Plan probes page 1 synchronously and picks the crawl depth. Probe records
// are seeded into the session so page 1 is never fetched twice and always
// reaches the merge. A terminal probe sets the session stop flag; a failed
// probe plans a shallow refresh, since a fetch error says nothing about
// catalog growth.
func (p *Planner) Plan(ctx context.Context, session *Session, snapshot catalog.Snapshot) Plan {
	body, err := p.fetcher.Fetch(ctx, 1)
	if err != nil {
		session.pageFailed()
		fetchErrors.Inc()
		p.logger.Warn("front page probe failed", zap.Error(err))
		return Plan{Pages: p.cfg.RefreshPages}
	}
	session.pageFetched()
	pagesFetched.Inc()

	res, err := p.extract.Extract(body, 1)
	if err != nil {
		p.logger.Warn("front page parse failed", zap.Error(err))
		return Plan{Pages: p.cfg.RefreshPages}
	}

	if res.Terminal() {
		if session.MarkTerminal(1) {
			terminalPages.Inc()
			p.logger.Info("catalog is empty, nothing to crawl")
		}
		return Plan{Pages: 1}
	}

	session.Collect(res.Records)
	recordsExtracted.Add(float64(len(res.Records)))

	for _, rec := range res.Records {
		if !snapshot.Contains(rec.ID) {
			p.logger.Info("new content on front page, planning full crawl",
				zap.String("id", rec.ID),
				zap.Int("pages", p.cfg.MaxPages),
			)
			return Plan{Pages: p.cfg.MaxPages, NewContent: true}
		}
	}

	p.logger.Info("no new content, planning shallow refresh",
		zap.Int("pages", p.cfg.RefreshPages),
	)
	return Plan{Pages: p.cfg.RefreshPages}
}
