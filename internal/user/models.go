// Package user holds the PartnerUser model: the human or service principals
// that authenticate against the gateway on behalf of a partner.
package user

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/platform/secrets"
)

// Role is a closed set ordered by privilege: admin > partner > user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePartner Role = "partner"
	RoleUser    Role = "user"
)

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RolePartner, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// PermissionWildcard grants every permission.
const PermissionWildcard = "*"

// PartnerUser belongs to exactly one partner. PasswordHash is the only form
// the password ever takes outside process memory.
type PartnerUser struct {
	ID           uuid.UUID
	PartnerID    uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Permissions  []string
	Scopes       []string
	IsActive     bool
	LastLoginAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New constructs a PartnerUser, hashing the password up front. Permissions and
// scopes default by role when not supplied. There is no save-time hashing
// hook; this is the only path from plaintext to hash.
func New(partnerID uuid.UUID, email, password string, role Role, permissions, scopes []string) (PartnerUser, error) {
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return PartnerUser{}, err
	}
	if permissions == nil {
		permissions = DefaultPermissions(role)
	}
	if scopes == nil {
		scopes = DefaultScopes(role)
	}
	now := time.Now()
	return PartnerUser{
		ID:           uuid.New(),
		PartnerID:    partnerID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  permissions,
		Scopes:       scopes,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetPassword replaces the stored hash with the hash of a new password.
func (u *PartnerUser) SetPassword(password string) error {
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// VerifyPassword checks a login attempt against the stored hash.
func (u *PartnerUser) VerifyPassword(password string) error {
	return secrets.VerifyPassword(password, u.PasswordHash)
}

// HasPermission reports whether the user holds a permission, honoring the
// wildcard.
func (u *PartnerUser) HasPermission(permission string) bool {
	if slices.Contains(u.Permissions, PermissionWildcard) {
		return true
	}
	return slices.Contains(u.Permissions, permission)
}

// HasScope reports whether the user holds a scope. No wildcard for scopes.
func (u *PartnerUser) HasScope(scope string) bool {
	return slices.Contains(u.Scopes, scope)
}

// DefaultPermissions returns the permission set assigned at creation when none
// is supplied explicitly.
func DefaultPermissions(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{PermissionWildcard}
	case RolePartner:
		return []string{"read:own", "write:own"}
	default:
		return []string{"read:own"}
	}
}

// DefaultScopes returns the scope set assigned at creation when none is
// supplied explicitly.
func DefaultScopes(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{"admin", "partner", "user"}
	case RolePartner:
		return []string{"partner", "user"}
	default:
		return []string{"user"}
	}
}

// Sanitized is the wire representation of a user: everything except the hash.
type Sanitized struct {
	ID          uuid.UUID `json:"id"`
	PartnerID   uuid.UUID `json:"partnerId"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions"`
	Scopes      []string  `json:"scopes"`
	IsActive    bool      `json:"isActive"`
}

// Sanitize strips the password hash for responses.
func (u PartnerUser) Sanitize() Sanitized {
	return Sanitized{
		ID:          u.ID,
		PartnerID:   u.PartnerID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		Permissions: u.Permissions,
		Scopes:      u.Scopes,
		IsActive:    u.IsActive,
	}
}
