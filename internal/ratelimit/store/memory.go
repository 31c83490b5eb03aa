// Package store implements sliding-window rate limit counters. The memory
// store serves single-process deployments and tests; the Redis store lets
// multiple gateway processes share one window per user.
package store

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Memory tracks request timestamps per key. Expired timestamps are swept on
// access, so an idle key costs nothing after its window passes.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

type MemoryOption func(*Memory)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *Memory) { s.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	s := &Memory{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request against the key and reports whether it fits
// inside limit requests per window.
func (s *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.windows[key] = sw
	}
	sw.sweep(now.Add(-window))

	if len(sw.timestamps) >= limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Reset clears the window for a key.
func (s *Memory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (sw *slidingWindow) sweep(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
