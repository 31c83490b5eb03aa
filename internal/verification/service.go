package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bdivp/internal/partner"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/sentinel"
)

// PartnerStore resolves the partner whose upstream credentials back a call.
type PartnerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (partner.Partner, error)
}

// Decrypter opens stored credential envelopes.
type Decrypter interface {
	Decrypt(envelope string) (string, error)
}

// Verifier is the upstream call, satisfied by Client in production and stubs
// in tests.
type Verifier interface {
	Verify(ctx context.Context, creds Credentials, req Request, typ Type) (Result, error)
}

// Service decrypts the partner's registry credentials and forwards the
// verification. Credentials never leave this call's stack.
type Service struct {
	partners PartnerStore
	cipher   Decrypter
	client   Verifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(partners PartnerStore, cipher Decrypter, client Verifier, logger *slog.Logger) *Service {
	return &Service{
		partners: partners,
		cipher:   cipher,
		client:   client,
		logger:   logger,
		tracer:   otel.Tracer("bdivp/internal/verification"),
	}
}

func (s *Service) Verify(ctx context.Context, partnerID uuid.UUID, req Request, typ Type) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Verify",
		trace.WithAttributes(
			attribute.String("partner.id", partnerID.String()),
			attribute.String("verification.type", string(typ)),
		),
	)
	defer span.End()

	p, err := s.partners.FindByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "Partner not found")
		}
		return Result{}, fmt.Errorf("find partner: %w", err)
	}
	if !p.IsActive {
		return Result{}, dErrors.New(dErrors.CodeForbidden, "Partner is deactivated")
	}

	username, err := s.cipher.Decrypt(p.NIDUsernameEnc)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("decrypt partner credentials: %w", err)
	}
	password, err := s.cipher.Decrypt(p.NIDPasswordEnc)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("decrypt partner credentials: %w", err)
	}

	stop := timeUpstream(typ)
	result, err := s.client.Verify(ctx, Credentials{Username: username, Password: password}, req, typ)
	stop()
	observeUpstreamCall(typ, err)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "nid registry call failed",
			"error", err,
			"partner_id", partnerID,
			"verification_type", typ,
		)
		if errors.Is(err, ErrUpstream) {
			return Result{}, dErrors.New(dErrors.CodeUpstream, "Failed to verify voter details")
		}
		return Result{}, err
	}

	// Detail records are only for FULL calls, even if the registry sends
	// them anyway.
	if typ != TypeFull {
		result.Details = nil
	}
	span.SetAttributes(attribute.Bool("verification.verified", result.Verified))
	return result, nil
}
