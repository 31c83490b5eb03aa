// Package service manages partner records and their encrypted upstream
// credentials. Plaintext credentials only exist inside a single call; they
// are encrypted before persist and masked before leaving the API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/partner"
	"bdivp/internal/platform/crypto"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, p partner.Partner) error
	FindByID(ctx context.Context, id uuid.UUID) (partner.Partner, error)
	ListActive(ctx context.Context) ([]partner.Partner, error)
	Update(ctx context.Context, p partner.Partner) error
}

// Cipher seals and opens credential envelopes.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

type Service struct {
	store  Store
	cipher Cipher
	logger *slog.Logger
}

func New(store Store, cipher Cipher, logger *slog.Logger) *Service {
	return &Service{store: store, cipher: cipher, logger: logger}
}

// CreateInput carries the fields for a new partner. The credentials arrive
// in plaintext and are gone by the time Create returns.
type CreateInput struct {
	OrgName     string
	SystemName  string
	NIDUsername string
	NIDPassword string
}

func (s *Service) List(ctx context.Context) ([]partner.Summary, error) {
	partners, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	summaries := make([]partner.Summary, 0, len(partners))
	for _, p := range partners {
		summaries = append(summaries, p.Summarize())
	}
	return summaries, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (partner.Summary, error) {
	if in.OrgName == "" || in.SystemName == "" || in.NIDUsername == "" || in.NIDPassword == "" {
		return partner.Summary{}, dErrors.New(dErrors.CodeInvalidInput, "Missing required fields")
	}

	usernameEnc, err := s.cipher.Encrypt(in.NIDUsername)
	if err != nil {
		return partner.Summary{}, fmt.Errorf("encrypt credentials: %w", err)
	}
	passwordEnc, err := s.cipher.Encrypt(in.NIDPassword)
	if err != nil {
		return partner.Summary{}, fmt.Errorf("encrypt credentials: %w", err)
	}

	now := time.Now()
	p := partner.Partner{
		ID:             uuid.New(),
		OrgName:        in.OrgName,
		SystemName:     in.SystemName,
		NIDUsernameEnc: usernameEnc,
		NIDPasswordEnc: passwordEnc,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return partner.Summary{}, fmt.Errorf("create partner: %w", err)
	}

	s.logger.InfoContext(ctx, "partner created",
		"partner_id", p.ID,
		"org_name", p.OrgName,
		"system_name", p.SystemName,
	)
	return p.Summarize(), nil
}

// Get returns partner details with decrypted-then-masked credentials.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (partner.Details, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return partner.Details{}, err
	}

	username, err := s.cipher.Decrypt(p.NIDUsernameEnc)
	if err != nil {
		return partner.Details{}, fmt.Errorf("decrypt credentials: %w", err)
	}
	password, err := s.cipher.Decrypt(p.NIDPasswordEnc)
	if err != nil {
		return partner.Details{}, fmt.Errorf("decrypt credentials: %w", err)
	}

	return partner.Details{
		Summary:     p.Summarize(),
		NIDUsername: crypto.Mask(username),
		NIDPassword: crypto.Mask(password),
	}, nil
}

// UpdateInput applies partial updates; nil fields are left unchanged.
type UpdateInput struct {
	OrgName    *string
	SystemName *string
	IsActive   *bool
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (partner.Summary, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return partner.Summary{}, err
	}

	if in.OrgName != nil {
		p.OrgName = *in.OrgName
	}
	if in.SystemName != nil {
		p.SystemName = *in.SystemName
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, p); err != nil {
		return partner.Summary{}, fmt.Errorf("update partner: %w", err)
	}
	return p.Summarize(), nil
}

// Deactivate soft-deletes a partner. The row stays so audit entries keep a
// valid reference.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	p.IsActive = false
	p.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, p); err != nil {
		return fmt.Errorf("deactivate partner: %w", err)
	}

	s.logger.InfoContext(ctx, "partner deactivated",
		"partner_id", p.ID,
		"org_name", p.OrgName,
	)
	return nil
}

// UpdateCredentials replaces one or both upstream credentials and returns
// the masked result.
func (s *Service) UpdateCredentials(ctx context.Context, id uuid.UUID, nidUsername, nidPassword string) (partner.Details, error) {
	if nidUsername == "" && nidPassword == "" {
		return partner.Details{}, dErrors.New(dErrors.CodeInvalidInput, "At least one of nidUsername or nidPassword is required")
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return partner.Details{}, err
	}

	if nidUsername != "" {
		enc, err := s.cipher.Encrypt(nidUsername)
		if err != nil {
			return partner.Details{}, fmt.Errorf("encrypt credentials: %w", err)
		}
		p.NIDUsernameEnc = enc
	}
	if nidPassword != "" {
		enc, err := s.cipher.Encrypt(nidPassword)
		if err != nil {
			return partner.Details{}, fmt.Errorf("encrypt credentials: %w", err)
		}
		p.NIDPasswordEnc = enc
	}
	p.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, p); err != nil {
		return partner.Details{}, fmt.Errorf("update partner credentials: %w", err)
	}

	s.logger.InfoContext(ctx, "partner credentials updated",
		"partner_id", p.ID,
		"org_name", p.OrgName,
	)
	return s.Get(ctx, id)
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (partner.Partner, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return partner.Partner{}, dErrors.New(dErrors.CodeNotFound, "Partner not found")
		}
		return partner.Partner{}, fmt.Errorf("find partner: %w", err)
	}
	return p, nil
}
