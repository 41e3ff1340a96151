package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/serroba/shortlink/internal/shortener"
)

// ErrCacheSize is returned for a non-positive cache size.
var ErrCacheSize = errors.New("cache size must be positive")

// LocalCache is an in-process implementation of shortener.Cache backed by ristretto.
// Entries are admitted asynchronously, so a Get right after Set may still miss.
type LocalCache struct {
	client *ristretto.Cache
}

// NewLocalCache creates a cache bounded to roughly maxSizeMB of URL bytes.
func NewLocalCache(maxSizeMB int) (*LocalCache, error) {
	if maxSizeMB <= 0 {
		return nil, fmt.Errorf("%w: got %d MB", ErrCacheSize, maxSizeMB)
	}

	maxCost := int64(maxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		// ten counters per expected entry, assuming ~100 byte urls
		NumCounters: maxCost / 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &LocalCache{client: client}, nil
}

func (c *LocalCache) Get(_ context.Context, code shortener.Code) (string, bool, error) {
	v, ok := c.client.Get(string(code))
	if !ok {
		return "", false, nil
	}

	url, ok := v.(string)

	return url, ok, nil
}

func (c *LocalCache) Set(_ context.Context, code shortener.Code, url string, ttl time.Duration) error {
	c.client.SetWithTTL(string(code), url, int64(len(url)), ttl)

	return nil
}

// Wait blocks until buffered writes have been applied.
func (c *LocalCache) Wait() {
	c.client.Wait()
}

// Clear drops every entry.
func (c *LocalCache) Clear() {
	c.client.Clear()
}

// Shutdown releases the cache's background goroutines.
func (c *LocalCache) Shutdown() error {
	c.client.Close()

	return nil
}

// Compile-time check.
var _ shortener.Cache = (*LocalCache)(nil)
