package resettoken

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bdivp/pkg/platform/sentinel"
)

// Memory is an in-memory reset token store for tests and local development.
type Memory struct {
	mu      sync.Mutex
	records []Record
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
	s := &Memory{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Memory) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *Memory) Consume(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for i := range s.records {
		rec := &s.records[i]
		if rec.UserID != userID || rec.Token != token {
			continue
		}
		if rec.Used {
			return sentinel.ErrAlreadyUsed
		}
		if !now.Before(rec.ExpiresAt) {
			return sentinel.ErrNotFound
		}
		rec.Used = true
		return nil
	}
	return sentinel.ErrNotFound
}

func (s *Memory) CountIssued(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}
