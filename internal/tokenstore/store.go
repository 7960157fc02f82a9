// Package tokenstore provides an in-process expiring key-value store used
// for password-reset tokens. It is injectable rather than a package-level
// singleton so call sites can later swap in a durable backing store.
package tokenstore

import (
	"context"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	value     string
	expiresAt time.Time
}

// Store is a TTL map with a periodic background sweep.
type Store struct {
	ttl   time.Duration
	clock Clock

	mu     sync.RWMutex
	tokens map[string]entry

	sweepInterval time.Duration
	sweepCtx      context.Context
	sweepCancel   context.CancelFunc
	sweepOnce     sync.Once
	sweepWg       sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the system clock, for tests.
func WithClock(clock Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithSweepInterval overrides the background sweep cadence.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) { s.sweepInterval = interval }
}

// New creates a store whose entries expire ttl after Set.
func New(ttl time.Duration, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		ttl:           ttl,
		clock:         realClock{},
		tokens:        make(map[string]entry),
		sweepInterval: 5 * time.Minute,
		sweepCtx:      ctx,
		sweepCancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops the sweep goroutine and releases resources.
func (s *Store) Close() {
	s.sweepCancel()
	s.sweepWg.Wait()
}

// Set stores value under key, replacing any previous value and restarting
// the TTL.
func (s *Store) Set(key, value string) {
	s.startSweeper()
	expiresAt := s.clock.Now().Add(s.ttl)
	s.mu.Lock()
	s.tokens[key] = entry{value: value, expiresAt: expiresAt}
	s.mu.Unlock()
}

// Get returns the value for key. An expired entry is removed and reported
// as not found.
func (s *Store) Get(key string) (string, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[key]
	if !ok {
		return "", false
	}
	if now.After(e.expiresAt) {
		delete(s.tokens, key)
		return "", false
	}
	return e.value, true
}

// Delete removes key regardless of expiry. Used after a token is consumed.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.tokens, key)
	s.mu.Unlock()
}

// Sweep evicts all expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.tokens {
		if now.After(e.expiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live and not-yet-swept entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *Store) startSweeper() {
	s.sweepOnce.Do(func() {
		s.sweepWg.Add(1)
		go func() {
			defer s.sweepWg.Done()
			ticker := time.NewTicker(s.sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-s.sweepCtx.Done():
					return
				case <-ticker.C:
					s.Sweep()
				}
			}
		}()
	})
}
