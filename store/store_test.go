package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securities-search/loader"
	"securities-search/models"
)

type fakeFetcher struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	results []result
}

type result struct {
	payload *loader.Payload
	err     error
}

func (f *fakeFetcher) FetchTrie(ctx context.Context) (*loader.Payload, error) {
	n := int(f.calls.Add(1)) - 1
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if n >= len(f.results) {
		n = len(f.results) - 1
	}
	return f.results[n].payload, f.results[n].err
}

func readyPayload() *loader.Payload {
	trie := models.NewTrie()
	trie.Insert(models.Security{Ticker: "AAPL", Name: "Apple Inc."})
	return &loader.Payload{Root: trie.Root, Count: 1, Size: 1, Version: "1.0"}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestEnsureLoaded(t *testing.T) {
	f := &fakeFetcher{results: []result{{payload: readyPayload()}}}
	s := New(f)

	snap := s.Snapshot()
	assert.Equal(t, Empty, snap.State)
	assert.Nil(t, snap.Root)
	assert.Nil(t, s.Root())

	require.NoError(t, s.EnsureLoaded(context.Background()))

	snap = s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "1.0", snap.Version)
	assert.Equal(t, 1, snap.Count)
	require.NotNil(t, snap.Root)
	assert.Same(t, snap.Root, s.Root())

	require.NoError(t, s.EnsureLoaded(context.Background()))
	assert.Equal(t, int32(1), f.calls.Load(), "ready store never fetches again")
	assert.Equal(t, 1, s.Fetches())
}

func TestEnsureLoadedSingleFlight(t *testing.T) {
	f := &fakeFetcher{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		results: []result{{payload: readyPayload()}},
	}
	s := New(f)

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureLoaded(context.Background())
		}()
	}

	<-f.started
	assert.Equal(t, Loading, s.Snapshot().State)
	close(f.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, Ready, s.Snapshot().State)
}

func TestEnsureLoadedFailureAndRetry(t *testing.T) {
	loadErr := &loader.LoadError{Op: "status", StatusCode: 500, Err: errors.New("Failed to fetch securities")}
	f := &fakeFetcher{results: []result{{err: loadErr}, {payload: readyPayload()}}}
	s := New(f)

	err := s.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)

	snap := s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Nil(t, snap.Root, "failed store exposes no root")
	assert.Same(t, loadErr, snap.Err)
	assert.Nil(t, s.Root())

	s.ClearError()
	snap = s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Nil(t, snap.Err)

	require.NoError(t, s.EnsureLoaded(context.Background()))
	assert.Equal(t, Ready, s.Snapshot().State)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestEnsureLoadedJoiningFailedFlightStaysFailed(t *testing.T) {
	loadErr := errors.New("Failed to fetch securities")
	s := New(&fakeFetcher{results: []result{{err: loadErr}}})
	require.Error(t, s.EnsureLoaded(context.Background()))
	require.Equal(t, Failed, s.Snapshot().State)

	// A flight that has recorded its failure but has not returned yet.
	release := make(chan struct{})
	held := s.flight.DoChan(flightKey, func() (any, error) {
		<-release
		return nil, loadErr
	})

	done := make(chan error, 1)
	go func() { done <- s.EnsureLoaded(context.Background()) }()

	// Let the caller join the held flight before it completes.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Failed, s.Snapshot().State)

	close(release)
	<-held
	assert.ErrorIs(t, <-done, loadErr)

	snap := s.Snapshot()
	assert.Equal(t, Failed, snap.State, "retry stays possible")
	assert.ErrorIs(t, snap.Err, loadErr)
}

func TestEnsureLoadedNilPayload(t *testing.T) {
	s := New(&fakeFetcher{results: []result{{payload: &loader.Payload{}}}})

	err := s.EnsureLoaded(context.Background())
	var de *loader.DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, loader.ErrNoRoot)
	assert.Equal(t, Failed, s.Snapshot().State)
}

func TestEnsureLoadedCallerCancel(t *testing.T) {
	f := &fakeFetcher{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		results: []result{{payload: readyPayload()}},
	}
	s := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.EnsureLoaded(ctx) }()

	<-f.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.gate)
	require.Eventually(t, func() bool {
		return s.Snapshot().State == Ready
	}, time.Second, 5*time.Millisecond, "the shared load completes without its first caller")
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestEnsureLoadedNoFetcher(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.EnsureLoaded(context.Background()), ErrNoFetcher)
	assert.Equal(t, Empty, s.Snapshot().State)
}

func TestClearErrorIgnoredWhenReady(t *testing.T) {
	s := New(&fakeFetcher{results: []result{{payload: readyPayload()}}})
	require.NoError(t, s.EnsureLoaded(context.Background()))
	s.ClearError()
	assert.Equal(t, Ready, s.Snapshot().State)
}
