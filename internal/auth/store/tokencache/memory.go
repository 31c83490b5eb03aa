package tokencache

import (
	"context"
	"sync"
	"time"

	"bdivp/pkg/platform/sentinel"
)

// Memory is an in-memory token cache for tests and local development. Same
// logical-expiry semantics as the Postgres store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	clock   Clock
}

// MemoryOption configures a Memory store instance.
type MemoryOption func(*Memory)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *Memory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	s := &Memory{
		records: make(map[string]Record),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Memory) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	s.records[rec.Token] = rec
	return nil
}

func (s *Memory) Find(_ context.Context, token string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[token]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	if !s.clock().Before(rec.ExpiresAt) {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *Memory) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

func (s *Memory) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	now := s.clock()
	for token, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, token)
			purged++
		}
	}
	return purged, nil
}

func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	now := s.clock()
	for _, rec := range s.records {
		if now.Before(rec.ExpiresAt) {
			n++
		}
	}
	return n, nil
}
