// Package admin backs the operations console: aggregate counts and the
// audit trail browser. Everything here is read-only and admin-gated.
package admin

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bdivp/internal/audit"
)

// verificationEndpoints are the endpoints counted as verification traffic.
var verificationEndpoints = []string{"/api/nid/verify-basic", "/api/nid/verify-full"}

// Counter is satisfied by the partner, user and token cache stores.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// AuditStore is the slice of the audit store the console reads.
type AuditStore interface {
	List(ctx context.Context, q audit.Query) ([]audit.Entry, error)
	Count(ctx context.Context, q audit.Query) (int, error)
}

type Service struct {
	partners Counter
	users    Counter
	tokens   Counter
	audits   AuditStore
}

func NewService(partners, users, tokens Counter, audits AuditStore) *Service {
	return &Service{partners: partners, users: users, tokens: tokens, audits: audits}
}

// Overview is the dashboard headline.
type Overview struct {
	Partners      int                `json:"partners"`
	Users         int                `json:"users"`
	ActiveTokens  int                `json:"activeTokens"`
	Verifications VerificationStats `json:"verifications"`
}

type VerificationStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// GetOverview gathers the counts concurrently; one slow store does not
// serialize the rest.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	var o Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.partners.Count(ctx)
		o.Partners = n
		return err
	})
	g.Go(func() error {
		n, err := s.users.Count(ctx)
		o.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.tokens.Count(ctx)
		o.ActiveTokens = n
		return err
	})
	g.Go(func() error {
		stats, err := s.verificationStats(ctx)
		o.Verifications = stats
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("gather overview: %w", err)
	}
	return o, nil
}

func (s *Service) verificationStats(ctx context.Context) (VerificationStats, error) {
	var stats VerificationStats
	verified := true
	for _, endpoint := range verificationEndpoints {
		total, err := s.audits.Count(ctx, audit.Query{Endpoint: endpoint})
		if err != nil {
			return VerificationStats{}, err
		}
		success, err := s.audits.Count(ctx, audit.Query{Endpoint: endpoint, Verified: &verified})
		if err != nil {
			return VerificationStats{}, err
		}
		stats.Total += total
		stats.Success += success
	}
	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

// AuditPage is one page of the audit browser.
type AuditPage struct {
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	Entries []audit.Entry `json:"-"`
}

// ListAuditLogs pages through the trail, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, q audit.Query, page int) (AuditPage, error) {
	if page < 1 {
		page = 1
	}
	q = q.Normalized()
	q.Offset = (page - 1) * q.Limit

	total, err := s.audits.Count(ctx, q)
	if err != nil {
		return AuditPage{}, fmt.Errorf("count audit entries: %w", err)
	}
	entries, err := s.audits.List(ctx, q)
	if err != nil {
		return AuditPage{}, fmt.Errorf("list audit entries: %w", err)
	}

	return AuditPage{Total: total, Page: page, Limit: q.Limit, Entries: entries}, nil
}
