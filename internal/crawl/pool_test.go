package crawl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func startPool(t *testing.T, session *Session, fetcher PageFetcher, workers int) (*Pool, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool := NewPool(PoolConfig{Workers: workers}, session, fetcher, stubExtractor{}, zap.NewNop())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		session.Close()
		pool.Wait()
	})
	return pool, ctx
}

func TestDispatchProcessesWholeBatch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	for page := 1; page <= 5; page++ {
		fetcher.pages[page] = "1:1"
	}

	session := NewSession(5)
	pool, ctx := startPool(t, session, fetcher, 3)

	require.NoError(t, pool.Dispatch(ctx, 1, 5))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, fetcher.fetchedPages())
	assert.Len(t, session.Records(), 5)
	assert.Equal(t, int64(5), session.Counters().PagesFetched)
}

func TestFetchErrorIsNotTerminal(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[1] = "10:1"
	fetcher.errs[2] = errors.New("connection refused")
	fetcher.pages[3] = "30:1"

	session := NewSession(3)
	pool, ctx := startPool(t, session, fetcher, 2)

	require.NoError(t, pool.Dispatch(ctx, 1, 3))

	assert.False(t, session.Stopped(), "a fetch failure must not end the crawl")
	counters := session.Counters()
	assert.Equal(t, int64(2), counters.PagesFetched)
	assert.Equal(t, int64(1), counters.PagesFailed)
	assert.Len(t, session.Records(), 2)
}

func TestTerminalPageSetsStopFlag(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[1] = "1:1"
	// Page 2 has no entry: empty body, zero records, terminal.

	session := NewSession(2)
	pool, ctx := startPool(t, session, fetcher, 2)

	require.NoError(t, pool.Dispatch(ctx, 1, 2))

	assert.True(t, session.Stopped())
	assert.Equal(t, 2, session.TerminalPage())
	assert.Len(t, session.Records(), 1)
}

func TestStoppedSessionSkipsQueuedPages(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	session := NewSession(4)
	session.MarkTerminal(1)

	pool, ctx := startPool(t, session, fetcher, 2)

	require.NoError(t, pool.Dispatch(ctx, 2, 5))

	assert.Empty(t, fetcher.fetchedPages(), "no network call may happen after the stop flag is set")
}

func TestWorkerPanicIsConfinedToItsTask(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[1] = "1:1"
	fetcher.pages[2] = "panic"
	fetcher.pages[3] = "3:1"

	session := NewSession(3)
	pool, ctx := startPool(t, session, fetcher, 2)

	require.NoError(t, pool.Dispatch(ctx, 1, 3))

	assert.False(t, session.Stopped())
	assert.Len(t, session.Records(), 2)

	// The pool survives and serves the next batch.
	fetcher.pages[4] = "4:1"
	require.NoError(t, pool.Dispatch(ctx, 4, 4))
	assert.Len(t, session.Records(), 3)
}

func TestSlowPageDoesNotDisturbSiblings(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[1] = "1:1"
	fetcher.errs[2] = errors.New("timeout awaiting response")
	fetcher.sleep[2] = 80 * time.Millisecond
	fetcher.pages[3] = "3:1"
	fetcher.pages[4] = "4:1"

	session := NewSession(4)
	pool, ctx := startPool(t, session, fetcher, 4)

	require.NoError(t, pool.Dispatch(ctx, 1, 4))

	assert.False(t, session.Stopped(), "a timeout must not look like the end of the catalog")
	counters := session.Counters()
	assert.Equal(t, int64(3), counters.PagesFetched)
	assert.Equal(t, int64(1), counters.PagesFailed)
	assert.Len(t, session.Records(), 3)
}

func TestDispatchHonorsCancellation(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[1] = "1:1"
	fetcher.sleep[1] = time.Second

	session := NewSession(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(PoolConfig{Workers: 1}, session, fetcher, stubExtractor{}, zap.NewNop())
	pool.Start(ctx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := pool.Dispatch(ctx, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	session.Close()
	pool.Wait()
}

func TestCanceledBatchReleasesItsBarrier(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	session := NewSession(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(PoolConfig{Workers: 2}, session, fetcher, stubExtractor{}, zap.NewNop())
	pool.Start(ctx)

	// Pages queued after cancellation must still release the batch barrier;
	// workers that stopped processing keep draining.
	var batch sync.WaitGroup
	for page := 2; page <= 5; page++ {
		batch.Add(1)
		require.NoError(t, session.enqueue(context.Background(), task{page: page, done: batch.Done}))
	}
	batch.Wait()

	session.Close()
	pool.Wait()
	assert.Empty(t, fetcher.fetchedPages(), "no fetch may happen after cancellation")
}
