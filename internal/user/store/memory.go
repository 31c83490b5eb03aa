package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/user"
	"bdivp/pkg/platform/sentinel"
)

// Memory is an in-memory PartnerUser store for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.PartnerUser
}

func NewMemory() *Memory {
	return &Memory{users: make(map[uuid.UUID]user.PartnerUser)}
}

func (s *Memory) Create(_ context.Context, u user.PartnerUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Memory) FindByID(_ context.Context, id uuid.UUID) (user.PartnerUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.PartnerUser{}, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *Memory) FindByEmail(_ context.Context, email string) (user.PartnerUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.PartnerUser{}, sentinel.ErrNotFound
}

func (s *Memory) List(_ context.Context) ([]user.PartnerUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]user.PartnerUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *Memory) Update(_ context.Context, u user.PartnerUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	s.users[u.ID] = u
	return nil
}

func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
