// Package audit records who asked the gateway to do what, and what came
// back. Entries are append-only; nothing in the system updates or deletes
// them.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded request. Request and response bodies are stored as
// raw JSON snapshots; MatchedFields and NIDFieldsUsed describe what the
// upstream verification actually compared and consumed.
type Entry struct {
	ID             uuid.UUID
	PartnerID      uuid.UUID
	RequesterID    uuid.UUID
	RequesterEmail string
	RequesterRole  string
	IPAddress      string
	UserAgent      string
	Endpoint       string
	RequestBody    json.RawMessage
	ResponseBody   json.RawMessage
	StatusCode     int
	MatchedFields  []string
	NIDFieldsUsed  []string
	Verified       bool
	CreatedAt      time.Time
}

// Query filters entries for the admin console. Zero values mean "any".
type Query struct {
	PartnerID uuid.UUID
	Endpoint  string
	Verified  *bool
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

const defaultQueryLimit = 50

// Normalized applies the default page size and clamps negative offsets.
func (q Query) Normalized() Query {
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Matches reports whether the entry satisfies every set filter.
func (e Entry) Matches(q Query) bool {
	if q.PartnerID != uuid.Nil && e.PartnerID != q.PartnerID {
		return false
	}
	if q.Endpoint != "" && e.Endpoint != q.Endpoint {
		return false
	}
	if q.Verified != nil && e.Verified != *q.Verified {
		return false
	}
	if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.CreatedAt.After(q.To) {
		return false
	}
	return true
}
