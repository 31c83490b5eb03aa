package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdivp/internal/user"
)

var jwtService = NewService("test-signing-key", "bdivp", time.Hour)

func testUser() user.PartnerUser {
	return user.PartnerUser{
		ID:        uuid.New(),
		PartnerID: uuid.New(),
		Role:      user.RolePartner,
		Scopes:    []string{"partner", "user"},
	}
}

func Test_GenerateAndValidate(t *testing.T) {
	u := testUser()
	now := time.Now()

	token, expiresAt, err := jwtService.Generate(u, now)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	claims, err := jwtService.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.Equal(t, u.PartnerID.String(), claims.PartnerID)
	assert.Equal(t, "partner", claims.Role)
	assert.Equal(t, []string{"partner", "user"}, claims.Scopes)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := jwtService.Validate("not-a-jwt")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_Validate_ExpiredToken(t *testing.T) {
	// Issue in the past so the embedded expiry is already behind us.
	token, _, err := jwtService.Generate(testUser(), time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("other-signing-key", "bdivp", time.Hour)
	token, _, err := other.Generate(testUser(), time.Now())
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
