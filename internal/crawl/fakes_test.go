package crawl

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clipindex/harvester/internal/catalog"
	"github.com/clipindex/harvester/internal/extractor"
)

// fakeFetcher serves canned bodies keyed by page index. Pages with no entry
// yield an empty body, which the stub extractor treats as terminal.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[int]string
	errs  map[int]error
	sleep map[int]time.Duration
	calls []int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[int]string),
		errs:  make(map[int]error),
		sleep: make(map[int]time.Duration),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, page int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	body, errVal, delay := f.pages[page], f.errs[page], f.sleep[page]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if errVal != nil {
		return nil, errVal
	}
	return []byte(body), nil
}

func (f *fakeFetcher) fetchedPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.calls...)
	sort.Ints(out)
	return out
}

func (f *fakeFetcher) maxPage() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxSeen := 0
	for _, p := range f.calls {
		if p > maxSeen {
			maxSeen = p
		}
	}
	return maxSeen
}

// stubExtractor decodes bodies of the form "id:views,id:views"; an empty
// body yields zero records. A body equal to "panic" blows up, exercising the
// pool's per-task recovery.
type stubExtractor struct{}

func (stubExtractor) Extract(body []byte, page int) (extractor.Result, error) {
	text := strings.TrimSpace(string(body))
	if text == "panic" {
		panic("extractor exploded")
	}
	res := extractor.Result{Page: page}
	if text == "" {
		return res, nil
	}
	for _, token := range strings.Split(text, ",") {
		id, viewsText, ok := strings.Cut(token, ":")
		if !ok {
			return extractor.Result{}, fmt.Errorf("bad token %q", token)
		}
		views, err := strconv.Atoi(viewsText)
		if err != nil {
			return extractor.Result{}, fmt.Errorf("bad views %q: %w", viewsText, err)
		}
		res.Records = append(res.Records, catalog.Record{Page: page, ID: id, Views: views})
	}
	return res, nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	initial catalog.Snapshot
	loadErr error
	saveErr error
	saved   [][]catalog.Record
}

func (s *fakeSnapshotStore) Load() (catalog.Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	snap := catalog.Snapshot{}
	for id, rec := range s.initial {
		snap[id] = rec
	}
	return snap, nil
}

func (s *fakeSnapshotStore) Save(records []catalog.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, append([]catalog.Record(nil), records...))
	return nil
}

func (s *fakeSnapshotStore) lastSaved() []catalog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

type fakeTable struct {
	mu     sync.Mutex
	err    error
	writes [][]catalog.Record
}

func (t *fakeTable) Write(records []catalog.Record) error {
	if t.err != nil {
		return t.err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, append([]catalog.Record(nil), records...))
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	pushes [][]catalog.Record
}

func (p *fakePublisher) Publish(_ context.Context, records []catalog.Record) error {
	p.mu.Lock()
	p.pushes = append(p.pushes, append([]catalog.Record(nil), records...))
	p.mu.Unlock()
	return p.err
}

type fakeMirror struct {
	mu      sync.Mutex
	err     error
	upserts [][]catalog.Record
}

func (m *fakeMirror) Upsert(_ context.Context, records []catalog.Record) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, append([]catalog.Record(nil), records...))
	m.mu.Unlock()
	return m.err
}

type fakeArchiver struct {
	mu     sync.Mutex
	err    error
	runIDs []string
}

func (a *fakeArchiver) Archive(_ context.Context, runID string, _ []catalog.Record) (string, error) {
	a.mu.Lock()
	a.runIDs = append(a.runIDs, runID)
	a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	return "mem://archive/" + runID, nil
}

type fixedIDs struct {
	id string
}

func (f fixedIDs) NewID() (string, error) {
	return f.id, nil
}
