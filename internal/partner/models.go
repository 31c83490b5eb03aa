// Package partner holds the Partner model: organizations permitted to call
// the NID verification API with their own upstream credentials.
package partner

import (
	"time"

	"github.com/google/uuid"
)

// Partner is an organization authorized to verify citizens. The NID credential
// fields always hold cipher envelopes, never plaintext; encryption happens in
// the service before any store sees the value. Partners are soft-deleted only,
// so audit rows keep a valid reference.
type Partner struct {
	ID             uuid.UUID
	OrgName        string
	SystemName     string
	NIDUsernameEnc string
	NIDPasswordEnc string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summary is the credential-free wire representation used in listings and
// embedded in principal responses.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	OrgName    string    `json:"orgName"`
	SystemName string    `json:"systemName"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Details adds masked credentials for the admin console.
type Details struct {
	Summary
	NIDUsername string `json:"nidUsername"`
	NIDPassword string `json:"nidPassword"`
}

func (p Partner) Summarize() Summary {
	return Summary{
		ID:         p.ID,
		OrgName:    p.OrgName,
		SystemName: p.SystemName,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
