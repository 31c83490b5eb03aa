// Package service manages partner users: listing, creation and permission
// grants. All of it is admin-console territory; self-service lives in the
// auth service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"bdivp/internal/user"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, u user.PartnerUser) error
	FindByID(ctx context.Context, id uuid.UUID) (user.PartnerUser, error)
	List(ctx context.Context) ([]user.PartnerUser, error)
	Update(ctx context.Context, u user.PartnerUser) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]user.Sanitized, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sanitized := make([]user.Sanitized, 0, len(users))
	for _, u := range users {
		sanitized = append(sanitized, u.Sanitize())
	}
	return sanitized, nil
}

// CreateInput carries the fields for a new user. Permissions and scopes are
// optional; role defaults apply when absent.
type CreateInput struct {
	PartnerID   uuid.UUID
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        string
	Permissions []string
	Scopes      []string
}

const minPasswordLength = 8

func (s *Service) Create(ctx context.Context, in CreateInput) (user.Sanitized, error) {
	if in.PartnerID == uuid.Nil {
		return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "partnerId is required")
	}
	if !govalidator.IsEmail(in.Email) {
		return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "A valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "Password must be at least 8 characters")
	}
	role, err := user.ParseRole(in.Role)
	if err != nil {
		return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "Role must be one of admin, partner, user")
	}

	u, err := user.New(in.PartnerID, in.Email, in.Password, role, in.Permissions, in.Scopes)
	if err != nil {
		return user.Sanitized{}, fmt.Errorf("construct user: %w", err)
	}
	u.FirstName, u.LastName = in.FirstName, in.LastName
	if u.FirstName == "" {
		u.FirstName = nameFromEmail(in.Email)
	}

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "A user with this email already exists")
		}
		return user.Sanitized{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created",
		"user_id", u.ID,
		"partner_id", u.PartnerID,
		"role", u.Role,
	)
	return u.Sanitize(), nil
}

// UpdatePermissionsInput applies permission/scope grants; nil slices leave
// the current grant untouched.
type UpdatePermissionsInput struct {
	Permissions []string
	Scopes      []string
}

func (s *Service) UpdatePermissions(ctx context.Context, id uuid.UUID, in UpdatePermissionsInput) (user.Sanitized, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return user.Sanitized{}, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return user.Sanitized{}, fmt.Errorf("find user: %w", err)
	}

	if in.Permissions != nil {
		cleaned, err := cleanGrant(in.Permissions)
		if err != nil {
			return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "Permissions must be a non-empty array of strings")
		}
		u.Permissions = cleaned
	}
	if in.Scopes != nil {
		cleaned, err := cleanGrant(in.Scopes)
		if err != nil {
			return user.Sanitized{}, dErrors.New(dErrors.CodeInvalidInput, "Scopes must be a non-empty array of strings")
		}
		u.Scopes = cleaned
	}
	u.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, u); err != nil {
		return user.Sanitized{}, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user permissions updated",
		"user_id", u.ID,
		"email", u.Email,
	)
	return u.Sanitize(), nil
}

// cleanGrant trims, rejects blanks, and deduplicates while keeping first
// occurrence order.
func cleanGrant(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, errors.New("blank grant entry")
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	return cleaned, nil
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
