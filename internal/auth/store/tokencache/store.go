// Package tokencache is the server-side session store: every issued JWT gets
// a row here, and deleting the row revokes the token immediately regardless of
// its embedded expiry. Backed by Postgres so revocation survives restarts and
// is shared by all server processes.
package tokencache

import (
	"time"

	"github.com/google/uuid"
)

// Record maps an issued token to its holder and expiry.
type Record struct {
	Token        string
	UserID       uuid.UUID
	PartnerID    uuid.UUID
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Clock abstracts time.Now for logical-expiry tests.
type Clock func() time.Time
