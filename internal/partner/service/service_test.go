package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	partnerstore "bdivp/internal/partner/store"
	"bdivp/internal/platform/crypto"
	dErrors "bdivp/pkg/domain-errors"
)

func newService(t *testing.T) (*Service, *partnerstore.Memory, *crypto.Cipher) {
	t.Helper()
	cipher, err := crypto.NewCipher(bytes.Repeat([]byte("k"), crypto.KeySize))
	require.NoError(t, err)
	store := partnerstore.NewMemory()
	return New(store, cipher, slog.New(slog.DiscardHandler)), store, cipher
}

func Test_Create_EncryptsCredentials(t *testing.T) {
	svc, store, cipher := newService(t)

	summary, err := svc.Create(context.Background(), CreateInput{
		OrgName:     "Acme Corp",
		SystemName:  "acme-kyc",
		NIDUsername: "acme-nid",
		NIDPassword: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", summary.OrgName)
	assert.True(t, summary.IsActive)

	stored, err := store.FindByID(context.Background(), summary.ID)
	require.NoError(t, err)

	// At rest the credentials are envelopes, not plaintext.
	assert.NotContains(t, stored.NIDUsernameEnc, "acme-nid")
	assert.NotContains(t, stored.NIDPasswordEnc, "hunter2")

	username, err := cipher.Decrypt(stored.NIDUsernameEnc)
	require.NoError(t, err)
	assert.Equal(t, "acme-nid", username)
}

func Test_Create_MissingFields(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), CreateInput{OrgName: "Acme Corp"})
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeInvalidInput, de.Code)
}

func Test_Get_MasksCredentials(t *testing.T) {
	svc, _, _ := newService(t)

	summary, err := svc.Create(context.Background(), CreateInput{
		OrgName:     "Acme Corp",
		SystemName:  "acme-kyc",
		NIDUsername: "acme-nid-user",
		NIDPassword: "hunter2-password",
	})
	require.NoError(t, err)

	details, err := svc.Get(context.Background(), summary.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(details.NIDUsername, "acme"))
	assert.NotEqual(t, "acme-nid-user", details.NIDUsername)
	assert.Contains(t, details.NIDUsername, "*")
	assert.NotEqual(t, "hunter2-password", details.NIDPassword)
}

func Test_Get_UnknownPartner(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeNotFound, de.Code)
	assert.Equal(t, "Partner not found", de.Message)
}

func Test_Update_PartialFields(t *testing.T) {
	svc, _, _ := newService(t)

	summary, err := svc.Create(context.Background(), CreateInput{
		OrgName: "Acme Corp", SystemName: "acme-kyc",
		NIDUsername: "u", NIDPassword: "p",
	})
	require.NoError(t, err)

	newName := "Acme Corporation"
	updated, err := svc.Update(context.Background(), summary.ID, UpdateInput{OrgName: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", updated.OrgName)
	assert.Equal(t, "acme-kyc", updated.SystemName, "unset fields stay unchanged")
}

func Test_Deactivate_SoftDeletes(t *testing.T) {
	svc, store, _ := newService(t)

	summary, err := svc.Create(context.Background(), CreateInput{
		OrgName: "Acme Corp", SystemName: "acme-kyc",
		NIDUsername: "u", NIDPassword: "p",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), summary.ID))

	// Row still exists for audit references, just inactive.
	stored, err := store.FindByID(context.Background(), summary.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	summaries, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func Test_UpdateCredentials(t *testing.T) {
	svc, store, cipher := newService(t)

	summary, err := svc.Create(context.Background(), CreateInput{
		OrgName: "Acme Corp", SystemName: "acme-kyc",
		NIDUsername: "old-user", NIDPassword: "old-pass",
	})
	require.NoError(t, err)

	t.Run("neither field", func(t *testing.T) {
		_, err := svc.UpdateCredentials(context.Background(), summary.ID, "", "")
		var de *dErrors.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "At least one of nidUsername or nidPassword is required", de.Message)
	})

	t.Run("unknown partner", func(t *testing.T) {
		_, err := svc.UpdateCredentials(context.Background(), uuid.New(), "new-user", "")
		var de *dErrors.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, dErrors.CodeNotFound, de.Code)
	})

	t.Run("rotates only the given field", func(t *testing.T) {
		details, err := svc.UpdateCredentials(context.Background(), summary.ID, "new-user-name", "")
		require.NoError(t, err)
		assert.Contains(t, details.NIDUsername, "*")

		stored, err := store.FindByID(context.Background(), summary.ID)
		require.NoError(t, err)
		username, err := cipher.Decrypt(stored.NIDUsernameEnc)
		require.NoError(t, err)
		assert.Equal(t, "new-user-name", username)

		password, err := cipher.Decrypt(stored.NIDPasswordEnc)
		require.NoError(t, err)
		assert.Equal(t, "old-pass", password)
	})
}
