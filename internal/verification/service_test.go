package verification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdivp/internal/partner"
	partnerstore "bdivp/internal/partner/store"
	"bdivp/internal/platform/crypto"
	dErrors "bdivp/pkg/domain-errors"
)

type stubVerifier struct {
	creds  Credentials
	req    Request
	typ    Type
	result Result
	err    error
}

func (v *stubVerifier) Verify(_ context.Context, creds Credentials, req Request, typ Type) (Result, error) {
	v.creds, v.req, v.typ = creds, req, typ
	return v.result, v.err
}

func serviceFixture(t *testing.T, verifier *stubVerifier) (*Service, partner.Partner) {
	t.Helper()

	cipher, err := crypto.NewCipher(bytes.Repeat([]byte("k"), crypto.KeySize))
	require.NoError(t, err)

	usernameEnc, err := cipher.Encrypt("acme-nid")
	require.NoError(t, err)
	passwordEnc, err := cipher.Encrypt("hunter2")
	require.NoError(t, err)

	p := partner.Partner{
		ID:             uuid.New(),
		OrgName:        "Acme Corp",
		SystemName:     "acme-kyc",
		NIDUsernameEnc: usernameEnc,
		NIDPasswordEnc: passwordEnc,
		IsActive:       true,
	}
	partners := partnerstore.NewMemory()
	require.NoError(t, partners.Create(context.Background(), p))

	return NewService(partners, cipher, verifier, slog.New(slog.DiscardHandler)), p
}

func Test_Service_Verify_DecryptsCredentials(t *testing.T) {
	verifier := &stubVerifier{result: Result{Status: "success", Verified: true}}
	svc, p := serviceFixture(t, verifier)

	req := Request{
		Identify: Identify{NID17Digit: "12345678901234567", DateOfBirth: "1990-01-15"},
		Verify:   map[string]any{"nameEn": "Jane Doe"},
	}
	result, err := svc.Verify(context.Background(), p.ID, req, TypeBasic)
	require.NoError(t, err)
	assert.True(t, result.Verified)

	assert.Equal(t, Credentials{Username: "acme-nid", Password: "hunter2"}, verifier.creds)
	assert.Equal(t, req, verifier.req)
	assert.Equal(t, TypeBasic, verifier.typ)
}

func Test_Service_Verify_UnknownPartner(t *testing.T) {
	svc, _ := serviceFixture(t, &stubVerifier{})

	_, err := svc.Verify(context.Background(), uuid.New(), Request{}, TypeBasic)

	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeNotFound, de.Code)
}

func Test_Service_Verify_DeactivatedPartner(t *testing.T) {
	verifier := &stubVerifier{}
	cipher, err := crypto.NewCipher(bytes.Repeat([]byte("k"), crypto.KeySize))
	require.NoError(t, err)

	enc, err := cipher.Encrypt("x")
	require.NoError(t, err)
	p := partner.Partner{ID: uuid.New(), NIDUsernameEnc: enc, NIDPasswordEnc: enc, IsActive: false}
	partners := partnerstore.NewMemory()
	require.NoError(t, partners.Create(context.Background(), p))
	svc := NewService(partners, cipher, verifier, slog.New(slog.DiscardHandler))

	_, err = svc.Verify(context.Background(), p.ID, Request{}, TypeBasic)

	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeForbidden, de.Code)
}

func Test_Service_Verify_UpstreamFailure(t *testing.T) {
	verifier := &stubVerifier{err: ErrUpstream}
	svc, p := serviceFixture(t, verifier)

	_, err := svc.Verify(context.Background(), p.ID, Request{}, TypeFull)

	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeUpstream, de.Code)
	assert.Equal(t, "Failed to verify voter details", de.Message)
}

func Test_Service_Verify_StripsDetailsForBasic(t *testing.T) {
	verifier := &stubVerifier{result: Result{
		Verified: true,
		Details:  map[string]any{"nameBn": "জেন ডো"},
	}}
	svc, p := serviceFixture(t, verifier)

	result, err := svc.Verify(context.Background(), p.ID, Request{}, TypeBasic)
	require.NoError(t, err)
	assert.Nil(t, result.Details)

	verifier.result.Details = map[string]any{"nameBn": "জেন ডো"}
	result, err = svc.Verify(context.Background(), p.ID, Request{}, TypeFull)
	require.NoError(t, err)
	assert.NotNil(t, result.Details)
}

func Test_Service_Verify_NonUpstreamErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	verifier := &stubVerifier{err: boom}
	svc, p := serviceFixture(t, verifier)

	_, err := svc.Verify(context.Background(), p.ID, Request{}, TypeBasic)
	require.ErrorIs(t, err, boom)
}
