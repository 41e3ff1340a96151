package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache(t *testing.T) {
	t.Run("set then get after buffers drain", func(t *testing.T) {
		c, err := store.NewLocalCache(1)
		require.NoError(t, err)
		defer func() { _ = c.Shutdown() }()

		require.NoError(t, c.Set(context.Background(), "abc", "https://example.com", time.Hour))
		c.Wait()

		url, ok, err := c.Get(context.Background(), "abc")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", url)
	})

	t.Run("miss returns not ok", func(t *testing.T) {
		c, err := store.NewLocalCache(1)
		require.NoError(t, err)
		defer func() { _ = c.Shutdown() }()

		_, ok, err := c.Get(context.Background(), "missing")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear drops entries", func(t *testing.T) {
		c, err := store.NewLocalCache(1)
		require.NoError(t, err)
		defer func() { _ = c.Shutdown() }()

		_ = c.Set(context.Background(), "abc", "https://example.com", time.Hour)
		c.Wait()
		c.Clear()

		_, ok, _ := c.Get(context.Background(), "abc")
		assert.False(t, ok)
	})

	t.Run("rejects a non-positive size", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			c, err := store.NewLocalCache(size)

			require.ErrorIs(t, err, store.ErrCacheSize, "size %d", size)
			assert.Nil(t, c)
		}
	})
}
