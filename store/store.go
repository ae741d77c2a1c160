// Package store holds the session's decoded securities trie and
// coordinates its one-time load.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"securities-search/loader"
	"securities-search/logger"
	"securities-search/models"
)

// ErrNoFetcher is returned by EnsureLoaded when the store has no fetcher.
var ErrNoFetcher = errors.New("store has no trie fetcher")

// State is the load state of a Store.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher retrieves and decodes the serialized trie.
type Fetcher interface {
	FetchTrie(ctx context.Context) (*loader.Payload, error)
}

// Snapshot is a point-in-time view of a Store. Root and Version are set
// only when State is Ready; Err only when State is Failed and the error
// has not been dismissed.
type Snapshot struct {
	State   State
	Root    *models.TrieNode
	Version string
	Count   int
	Err     error
}

// Store owns the decoded trie root for a session. Once Ready it never
// changes, so Root may be shared by any number of concurrent readers.
type Store struct {
	fetcher Fetcher
	flight  singleflight.Group

	mu      sync.RWMutex
	state   State
	root    *models.TrieNode
	version string
	count   int
	err     error
	fetches int
}

// New creates an Empty store backed by fetcher.
func New(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher}
}

const flightKey = "securities-trie"

// EnsureLoaded brings the store to Ready or Failed. It returns immediately
// when Ready. Concurrent callers share one in-flight load and observe the
// same outcome. A Failed store starts a new load. ctx only bounds how long
// the caller waits; the shared load itself runs to completion.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	s.mu.RLock()
	state, fetcher := s.state, s.fetcher
	s.mu.RUnlock()
	if state == Ready {
		return nil
	}
	if fetcher == nil {
		return ErrNoFetcher
	}

	// Only load moves the state, so joining a flight that already failed
	// leaves the store Failed.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		return nil, s.load(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load(ctx context.Context) error {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	if s.state == Ready {
		// A flight finished between the caller's state check and DoChan.
		s.mu.Unlock()
		return nil
	}
	s.state = Loading
	s.fetches++
	s.mu.Unlock()

	payload, err := s.fetcher.FetchTrie(ctx)
	if err == nil && (payload == nil || payload.Root == nil) {
		err = &loader.LoadError{Op: "decode", Err: &loader.DecodeError{Err: loader.ErrNoRoot}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		s.err = err
		log.Error(err, "failed to load securities trie")
		return err
	}

	s.state = Ready
	s.root = payload.Root
	s.version = payload.Version
	s.count = payload.Count
	s.err = nil
	log.V(1).Info("securities trie ready", "version", payload.Version, "count", payload.Count)
	return nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{State: s.state}
	switch s.state {
	case Ready:
		snap.Root = s.root
		snap.Version = s.version
		snap.Count = s.count
	case Failed:
		snap.Err = s.err
	}
	return snap
}

// Root returns the trie root when Ready and nil otherwise.
func (s *Store) Root() *models.TrieNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Ready {
		return nil
	}
	return s.root
}

// ClearError dismisses the error of a Failed store. The state stays Failed
// so the next EnsureLoaded still retries.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Failed {
		s.err = nil
	}
}

// Fetches reports how many trie fetches the store has started.
func (s *Store) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}
