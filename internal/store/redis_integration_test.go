//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/serroba/shortlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheIntegration(t *testing.T) {
	ctx := context.Background()
	client := testutil.Redis(t)

	c := store.NewRedisCache(client)

	t.Run("set and get url", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "testcode123", "https://example.com", time.Minute))

		got, ok, err := c.Get(ctx, "testcode123")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", got)

		ttl, err := client.TTL(ctx, "url:testcode123").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("miss is not an error", func(t *testing.T) {
		got, ok, err := c.Get(ctx, shortener.Code("nonexistent"))

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	client := testutil.Redis(t)

	s, err := store.NewRateLimitRedisStore(client)
	require.NoError(t, err)

	limiter := ratelimit.NewPolicyLimiter(s, ratelimit.NewPolicyBuilder().
		AddLimit(ratelimit.ScopeGlobal, 3, time.Minute).
		Build())

	for i := range 3 {
		decision, err := limiter.Allow(ctx, "client", []ratelimit.Scope{ratelimit.ScopeGlobal})
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d", i+1)
		assert.Equal(t, int64(2-i), decision.Remaining())
	}

	decision, err := limiter.Allow(ctx, "client", []ratelimit.Scope{ratelimit.ScopeGlobal})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ratelimit.ScopeGlobal, decision.Scope)

	decision, err = limiter.Allow(ctx, "other", []ratelimit.Scope{ratelimit.ScopeGlobal})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
