package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdivp/internal/auth/store/tokencache"
	"bdivp/internal/jwttoken"
	"bdivp/internal/user"
	userstore "bdivp/internal/user/store"
)

type authFixture struct {
	validator *jwttoken.Service
	tokens    *tokencache.Memory
	users     *userstore.Memory
	user      user.PartnerUser
	token     string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	validator := jwttoken.NewService("test-key", "bdivp", time.Hour)
	tokens := tokencache.NewMemory()
	users := userstore.NewMemory()

	u, err := user.New(uuid.New(), "ops@acme.example", "s3cret-pass", user.RolePartner, nil, nil)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), u))

	token, expiresAt, err := validator.Generate(u, time.Now())
	require.NoError(t, err)
	require.NoError(t, tokens.Put(context.Background(), tokencache.Record{
		Token:     token,
		UserID:    u.ID,
		PartnerID: u.PartnerID,
		ExpiresAt: expiresAt,
	}))

	return &authFixture{validator: validator, tokens: tokens, users: users, user: u, token: token}
}

func (f *authFixture) serve(t *testing.T, authorization string) (*httptest.ResponseRecorder, *Principal) {
	t.Helper()

	var seen *Principal
	handler := RequireAuth(f.validator, f.tokens, f.users, slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := GetPrincipal(r.Context()); ok {
				seen = &p
			}
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	return body.Message
}

func Test_RequireAuth_ValidToken(t *testing.T) {
	f := newAuthFixture(t)

	rec, principal := f.serve(t, "Bearer "+f.token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, f.user.ID, principal.UserID)
	assert.Equal(t, f.user.PartnerID, principal.PartnerID)
	assert.Equal(t, f.user.Email, principal.Email)
	assert.Equal(t, user.RolePartner, principal.Role)
	assert.Equal(t, f.token, principal.Token)
}

func Test_RequireAuth_MissingHeader(t *testing.T) {
	f := newAuthFixture(t)

	rec, principal := f.serve(t, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, principal)
	assert.Equal(t, "Missing or invalid Authorization header", errorMessage(t, rec))
}

func Test_RequireAuth_MalformedHeader(t *testing.T) {
	f := newAuthFixture(t)

	rec, _ := f.serve(t, "Token "+f.token)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing or invalid Authorization header", errorMessage(t, rec))
}

func Test_RequireAuth_InvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	rec, _ := f.serve(t, "Bearer not-a-jwt")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorMessage(t, rec))
}

func Test_RequireAuth_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)

	expired, _, err := f.validator.Generate(f.user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	rec, _ := f.serve(t, "Bearer "+expired)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired", errorMessage(t, rec))
}

func Test_RequireAuth_RevokedToken(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.tokens.Revoke(context.Background(), f.token))

	rec, _ := f.serve(t, "Bearer "+f.token)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", errorMessage(t, rec))
}

func Test_RequireAuth_DeactivatedUser(t *testing.T) {
	f := newAuthFixture(t)

	f.user.IsActive = false
	require.NoError(t, f.users.Update(context.Background(), f.user))

	rec, _ := f.serve(t, "Bearer "+f.token)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Account is deactivated", errorMessage(t, rec))
}
