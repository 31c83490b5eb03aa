package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/partner"
	"bdivp/pkg/platform/sentinel"
)

// Memory is an in-memory Partner store for tests and local development.
type Memory struct {
	mu       sync.RWMutex
	partners map[uuid.UUID]partner.Partner
}

func NewMemory() *Memory {
	return &Memory{partners: make(map[uuid.UUID]partner.Partner)}
}

func (s *Memory) Create(_ context.Context, p partner.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[p.ID] = p
	return nil
}

func (s *Memory) FindByID(_ context.Context, id uuid.UUID) (partner.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[id]
	if !ok {
		return partner.Partner{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *Memory) ListActive(_ context.Context) ([]partner.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]partner.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) Update(_ context.Context, p partner.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.partners[p.ID] = p
	return nil
}

func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partners), nil
}
