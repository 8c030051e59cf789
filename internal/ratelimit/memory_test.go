package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(0.001, 2)

	allowed, _ := limiter.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, err := limiter.Allow(ctx, "a")
	assert.NoError(t, err)
	assert.False(t, allowed, "burst exhausted")

	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed, "separate bucket per key")
}

func TestMemoryLimiter_DefaultBurst(t *testing.T) {
	limiter := NewMemoryLimiter(1, 0)
	assert.Equal(t, 5, limiter.burst)
}
