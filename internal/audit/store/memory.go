package store

import (
	"context"
	"sort"
	"sync"

	"bdivp/internal/audit"
)

// Memory keeps entries in insertion order, newest served first.
type Memory struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *Memory) List(_ context.Context, q audit.Query) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range s.entries {
		if e.Matches(q) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	q = q.Normalized()
	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *Memory) Count(_ context.Context, q audit.Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.Matches(q) {
			count++
		}
	}
	return count, nil
}
