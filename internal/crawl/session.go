// Package crawl implements the concurrent pagination walk: a single-run
// session holding all shared state, a fixed worker pool draining its page
// queue, a change-aware planner, and the runner that ties them to the
// persistence pipeline.
package crawl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/clipindex/harvester/internal/catalog"
)

// task is one page index awaiting a worker, paired with its batch barrier.
type task struct {
	page int
	done func()
}

// Counters are the per-run progress totals.
type Counters struct {
	PagesFetched int64
	PagesFailed  int64
	Records      int64
}

// Session owns the mutable state of exactly one crawl run: the page queue,
// the record accumulator, the stop flag and the progress counters. Workers
// share it by handle; nothing here is package-level.
type Session struct {
	tasks chan task

	mu      sync.Mutex
	records []catalog.Record

	stopped      atomic.Bool
	terminalPage atomic.Int64
	pagesFetched atomic.Int64
	pagesFailed  atomic.Int64
}

// NewSession builds a session whose queue holds up to queueDepth pending
// pages. Dispatch never outruns that depth, so enqueues do not block while
// workers are busy.
func NewSession(queueDepth int) *Session {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &Session{
		tasks: make(chan task, queueDepth),
	}
}

// enqueue pushes one task or returns when the context ends.
func (s *Session) enqueue(ctx context.Context, t task) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue page %d: %w", t.page, ctx.Err())
	case s.tasks <- t:
		return nil
	}
}

// Close closes the page queue; workers drain what remains and exit. Call
// exactly once, after the last Dispatch has returned.
func (s *Session) Close() {
	close(s.tasks)
}

// Collect appends freshly extracted records to the shared accumulator.
// Ingestion order is nondeterministic across workers; the dataset is keyed
// and resorted before persistence.
func (s *Session) Collect(records []catalog.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
}

// Records returns a copy of everything collected so far.
func (s *Session) Records() []catalog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Record, len(s.records))
	copy(out, s.records)
	return out
}

// MarkTerminal sets the stop flag and remembers the page that ended the
// catalog. It reports whether this call was the one that set the flag, so
// the caller can log the event exactly once. The flag is never cleared.
func (s *Session) MarkTerminal(page int) bool {
	if s.stopped.CompareAndSwap(false, true) {
		s.terminalPage.Store(int64(page))
		return true
	}
	return false
}

// Stopped reports whether the end of the catalog has been seen.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// TerminalPage returns the page that set the stop flag, or zero.
func (s *Session) TerminalPage() int {
	return int(s.terminalPage.Load())
}

func (s *Session) pageFetched() {
	s.pagesFetched.Add(1)
}

func (s *Session) pageFailed() {
	s.pagesFailed.Add(1)
}

// Counters returns a point-in-time view of the progress totals.
func (s *Session) Counters() Counters {
	s.mu.Lock()
	records := int64(len(s.records))
	s.mu.Unlock()
	return Counters{
		PagesFetched: s.pagesFetched.Load(),
		PagesFailed:  s.pagesFailed.Load(),
		Records:      records,
	}
}
