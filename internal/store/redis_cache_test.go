package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisCache(t *testing.T) {
	t.Run("miss returns not ok without error", func(t *testing.T) {
		client, _ := setupMiniredis(t)
		c := store.NewRedisCache(client)

		url, ok, err := c.Get(context.Background(), "abc")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, url)
	})

	t.Run("set then get", func(t *testing.T) {
		client, mr := setupMiniredis(t)
		c := store.NewRedisCache(client)

		err := c.Set(context.Background(), "abc", "https://example.com", time.Hour)
		require.NoError(t, err)

		url, ok, err := c.Get(context.Background(), "abc")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", url)
		assert.Equal(t, time.Hour, mr.TTL("url:abc"))
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		client, mr := setupMiniredis(t)
		c := store.NewRedisCache(client)

		_ = c.Set(context.Background(), "abc", "https://example.com", time.Minute)
		mr.FastForward(2 * time.Minute)

		_, ok, err := c.Get(context.Background(), "abc")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("returns error when redis is down", func(t *testing.T) {
		client, mr := setupMiniredis(t)
		c := store.NewRedisCache(client)
		mr.Close()

		_, _, err := c.Get(context.Background(), "abc")
		assert.Error(t, err)

		err = c.Set(context.Background(), "abc", "https://example.com", time.Minute)
		assert.Error(t, err)
	})
}
