package resettoken

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdivp/pkg/platform/sentinel"
)

func TestMemory_ConsumeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	userID := uuid.New()

	require.NoError(t, store.Create(ctx, Record{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     "reset-tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, store.Consume(ctx, userID, "reset-tok"))
	assert.ErrorIs(t, store.Consume(ctx, userID, "reset-tok"), sentinel.ErrAlreadyUsed,
		"second consumption of the same token must fail")
	assert.ErrorIs(t, store.Consume(ctx, userID, "never-issued"), sentinel.ErrNotFound)
}

func TestMemory_ConsumeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemory(WithMemoryClock(func() time.Time { return now }))
	userID := uuid.New()

	require.NoError(t, store.Create(ctx, Record{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     "reset-tok",
		ExpiresAt: now.Add(time.Hour),
	}))

	now = now.Add(61 * time.Minute)
	assert.ErrorIs(t, store.Consume(ctx, userID, "reset-tok"), sentinel.ErrNotFound)
}

func TestMemory_ConsumeWrongUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	userID := uuid.New()

	require.NoError(t, store.Create(ctx, Record{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     "reset-tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	assert.ErrorIs(t, store.Consume(ctx, uuid.New(), "reset-tok"), sentinel.ErrNotFound)
}

func TestMemory_SiblingTokensStayValid(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	userID := uuid.New()

	for _, tok := range []string{"first", "second"} {
		require.NoError(t, store.Create(ctx, Record{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     tok,
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	require.NoError(t, store.Consume(ctx, userID, "first"))
	assert.NoError(t, store.Consume(ctx, userID, "second"),
		"consuming one token must not invalidate siblings")
}
