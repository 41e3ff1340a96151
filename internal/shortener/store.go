package shortener

import (
	"context"
	"time"
)

// Store is the authoritative persistence for short links.
type Store interface {
	// AllocateID reserves a new identifier. Two calls never return the same value.
	AllocateID(ctx context.Context) (uint64, error)
	// Create inserts a link under its allocated identifier.
	// Returns ErrAliasConflict if the code is already taken.
	Create(ctx context.Context, link *ShortLink) error
	// FindByCode returns ErrNotFound if no link has the given code.
	FindByCode(ctx context.Context, code Code) (*ShortLink, error)
}

// Cache is a best-effort code -> url lookaside cache.
type Cache interface {
	Get(ctx context.Context, code Code) (url string, ok bool, err error)
	Set(ctx context.Context, code Code, url string, ttl time.Duration) error
}
