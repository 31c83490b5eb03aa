package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:user:"

// Redis implements the sliding window on a sorted set per key: members are
// unique request ids scored by their unix-nano timestamp. One pipeline trims
// the window, counts it, and conditionally records the new request, so
// concurrent gateway processes agree on the count.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	redisKey := redisKeyPrefix + key
	now := time.Now()
	cutoff := now.Add(-window)

	member := uuid.NewString()
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}

	if count > limit {
		// Over the limit: take the optimistic add back so rejected requests
		// do not extend the lockout. Removing our own member keeps a
		// concurrent sibling's timestamp intact.
		s.client.ZRem(ctx, redisKey, member)
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{Allowed: true, Remaining: limit - count, ResetAt: resetAt}, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit key: %w", err)
	}
	return nil
}
