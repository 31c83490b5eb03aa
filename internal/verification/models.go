// Package verification proxies citizen identity checks to the national ID
// registry using the calling partner's own upstream credentials.
package verification

// Type selects how much the registry checks and returns.
type Type string

const (
	// TypeBasic matches the submitted fields and returns only the match
	// outcome.
	TypeBasic Type = "BASIC"
	// TypeFull additionally returns the registry's detail record for the
	// citizen.
	TypeFull Type = "FULL"
)

// Identify carries the fields that locate a citizen in the registry. One of
// the NID numbers is required.
type Identify struct {
	NID10Digit  string `json:"nid10Digit,omitempty"`
	NID17Digit  string `json:"nid17Digit,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// Request is one verification submission. Verify holds the fields the
// registry should compare against its record; its shape is owned by the
// upstream contract, so it passes through untyped.
type Request struct {
	Identify Identify       `json:"identify"`
	Verify   map[string]any `json:"verify"`
}

// Result is the registry's answer.
type Result struct {
	Status                  string          `json:"status"`
	Type                    string          `json:"type"`
	Verified                bool            `json:"verified"`
	MatchedFields           []string        `json:"matchedFields"`
	FieldVerificationResult map[string]bool `json:"fieldVerificationResult"`
	// Details is only populated for FULL verifications.
	Details map[string]any `json:"details,omitempty"`
}

// Credentials are a partner's decrypted upstream credentials. They exist in
// process memory only for the duration of one call.
type Credentials struct {
	Username string
	Password string
}
