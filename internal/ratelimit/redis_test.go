package ratelimit

import (
	"context"
	"testing"
	"time"

	"labreserve/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	limiter := NewRedisLimiter(client, 2, time.Minute)

	t.Run("WithinLimit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			allowed, err := limiter.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("OverLimit", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("WindowExpires", func(t *testing.T) {
		assert.True(t, s.TTL(keyPrefix+"10.0.0.1") > 0)
		s.FastForward(time.Minute + time.Second)

		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRedisLimiter_HealsCounterWithoutTTL(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	// A counter left over without expiry must not keep the client limited forever.
	require.NoError(t, s.Set(keyPrefix+"10.0.0.9", "5"))
	assert.Zero(t, s.TTL(keyPrefix+"10.0.0.9"))

	limiter := NewRedisLimiter(client, 2, time.Minute)
	allowed, err := limiter.Allow(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, s.TTL(keyPrefix+"10.0.0.9"))

	s.FastForward(time.Minute + time.Second)
	allowed, err = limiter.Allow(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_WindowNotExtended(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	limiter := NewRedisLimiter(client, 10, time.Minute)
	ctx := context.Background()

	_, err = limiter.Allow(ctx, "10.0.0.7")
	require.NoError(t, err)
	s.FastForward(20 * time.Second)
	_, err = limiter.Allow(ctx, "10.0.0.7")
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, s.TTL(keyPrefix+"10.0.0.7"))
}

func TestRedisLimiter_NilClient(t *testing.T) {
	limiter := NewRedisLimiter(nil, 1, 0)
	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}
