// Package jwttoken signs and validates the gateway's session tokens.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bdivp/internal/user"
)

var (
	// ErrTokenExpired signals a structurally valid token past its embedded
	// expiry. Kept distinct so the authenticator can answer "Token expired"
	// instead of the generic invalid-token message.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid covers every other signature or claims failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims embeds the principal's identity in the session token.
type Claims struct {
	UserID    string   `json:"id"`
	PartnerID string   `json:"partnerId"`
	Role      string   `json:"role"`
	Scopes    []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation. HS256; the signing key comes
// from configuration and never rotates mid-process.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey string, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// TTL exposes the configured token lifetime so the session issuer can store
// the same expiry in the token cache.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Generate issues a signed token for the given user.
func (s *Service) Generate(u user.PartnerUser, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    u.ID.String(),
		PartnerID: u.PartnerID.String(),
		Role:      string(u.Role),
		Scopes:    u.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token string.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
