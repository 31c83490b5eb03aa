package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Memory_AllowsUpToLimit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 10-(i+1), result.Remaining)
	}

	result, err := s.Allow(ctx, "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
}

func Test_Memory_KeysAreIndependent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
	}

	result, err := s.Allow(ctx, "user-2", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func Test_Memory_WindowSlides(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
		now = now.Add(5 * time.Second)
	}

	result, err := s.Allow(ctx, "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// 15s later the two oldest timestamps have left the window.
	now = now.Add(15 * time.Second)
	result, err = s.Allow(ctx, "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func Test_Memory_RejectedRequestsDoNotCount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
	}
	// Hammering while limited must not extend the lockout.
	for i := 0; i < 50; i++ {
		now = now.Add(time.Second)
		result, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	}

	now = now.Add(time.Minute)
	result, err := s.Allow(ctx, "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func Test_Memory_Reset(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Allow(ctx, "user-1", 10, time.Minute)
		require.NoError(t, err)
	}
	require.NoError(t, s.Reset(ctx, "user-1"))

	result, err := s.Allow(ctx, "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
