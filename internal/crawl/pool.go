package crawl

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clipindex/harvester/internal/extractor"
)

// PageFetcher retrieves the raw body of one listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, page int) ([]byte, error)
}

// RecordExtractor turns a page body into records.
type RecordExtractor interface {
	Extract(body []byte, page int) (extractor.Result, error)
}

// PoolConfig controls pool behavior.
type PoolConfig struct {
	// Workers is the number of long-lived goroutines draining the queue.
	Workers int
	// FetchDelay is slept after each successful fetch as a self-throttle.
	FetchDelay time.Duration
}

// Pool runs a fixed set of workers over a session's page queue. The same
// pool serves every batch of a run; workers exit when the session queue
// closes. Cancellation stops processing, not draining, so batch barriers
// release even for pages abandoned mid-batch.
type Pool struct {
	cfg     PoolConfig
	session *Session
	fetcher PageFetcher
	extract RecordExtractor
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewPool constructs a Pool bound to one session.
func NewPool(cfg PoolConfig, session *Session, fetcher PageFetcher, extract RecordExtractor, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pool{
		cfg:     cfg,
		session: session,
		fetcher: fetcher,
		extract: extract,
		logger:  logger,
	}
}

// Start launches the workers. They run until the session queue closes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Dispatch enqueues the inclusive page range [first, last] and blocks until
// every page in it has been processed. The join is the batch boundary: no
// page of the next batch is enqueued while this one is in flight.
func (p *Pool) Dispatch(ctx context.Context, first, last int) error {
	var batch sync.WaitGroup
	for page := first; page <= last; page++ {
		batch.Add(1)
		if err := p.session.enqueue(ctx, task{page: page, done: batch.Done}); err != nil {
			batch.Done()
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		batch.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("batch %d-%d canceled: %w", first, last, ctx.Err())
	case <-done:
		return nil
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	logger := p.logger.With(zap.Int("worker", id))
	for t := range p.session.tasks {
		// Canceled: mark done without processing so the barrier releases.
		if ctx.Err() != nil {
			t.done()
			continue
		}
		p.process(ctx, logger, t)
	}
}

// process handles one page. Every exit path marks the task done so the batch
// barrier always releases, and a panic in fetch or extract is confined to
// this task.
func (p *Pool) process(ctx context.Context, logger *zap.Logger, t task) {
	defer t.done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic",
				zap.Int("page", t.page),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if p.session.Stopped() {
		return
	}

	body, err := p.fetcher.Fetch(ctx, t.page)
	if err != nil {
		p.session.pageFailed()
		fetchErrors.Inc()
		logger.Warn("page fetch failed", zap.Int("page", t.page), zap.Error(err))
		return
	}
	p.session.pageFetched()
	pagesFetched.Inc()

	res, err := p.extract.Extract(body, t.page)
	if err != nil {
		p.session.pageFailed()
		fetchErrors.Inc()
		logger.Warn("page extract failed", zap.Int("page", t.page), zap.Error(err))
		return
	}

	if res.Terminal() {
		if p.session.MarkTerminal(t.page) {
			terminalPages.Inc()
			logger.Info("terminal page reached", zap.Int("page", t.page))
		}
		return
	}

	p.session.Collect(res.Records)
	recordsExtracted.Add(float64(len(res.Records)))

	p.pause(ctx)
}

// pause sleeps the configured post-fetch delay, abandoning it on shutdown.
func (p *Pool) pause(ctx context.Context) {
	if p.cfg.FetchDelay <= 0 {
		return
	}
	timer := time.NewTimer(p.cfg.FetchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
