package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, "test:rl", limit, window), mr
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := limiter.Allow(ctx, "transfers", "customer-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}

	d, err := limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 4, d.Count)
	assert.GreaterOrEqual(t, d.RetryAfter, time.Second)
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestRedisLimiter_SubjectsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "transfers", "customer-2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, 2*time.Second)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)

	d, err := limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	mr.FastForward(3 * time.Second)

	d, err = limiter.Allow(ctx, "transfers", "customer-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestRedisLimiter_DisabledWhenLimitNotPositive(t *testing.T) {
	limiter, mr := newTestLimiter(t, 0, time.Minute)

	d, err := limiter.Allow(context.Background(), "transfers", "customer-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, mr.Keys())
}

func TestRedisLimiter_RedisUnavailable(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "transfers", "customer-1")
	require.Error(t, err)
}
