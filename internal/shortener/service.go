package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortlink/internal/base62"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL     = time.Hour
	DefaultCacheTimeout = 50 * time.Millisecond

	// derived codes can collide with an alias registered earlier
	maxDerivedAttempts = 3
)

// Config tunes the cache-aside behaviour of the Service.
type Config struct {
	CacheTTL     time.Duration
	CacheTimeout time.Duration
}

// Service assigns codes to URLs and resolves codes back to URLs.
type Service struct {
	store        Store
	cache        Cache
	cacheTTL     time.Duration
	cacheTimeout time.Duration
	logger       *zap.Logger
}

// NewService creates a new Service. Zero config values fall back to defaults.
func NewService(store Store, cache Cache, cfg Config, logger *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = DefaultCacheTimeout
	}

	return &Service{
		store:        store,
		cache:        cache,
		cacheTTL:     cfg.CacheTTL,
		cacheTimeout: cfg.CacheTimeout,
		logger:       logger,
	}
}

// Shorten stores originalURL and returns its code. A non-empty customAlias is
// used verbatim as the code.
func (s *Service) Shorten(ctx context.Context, originalURL, customAlias string) (Code, error) {
	if originalURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}

	if customAlias != "" {
		return s.shortenWithAlias(ctx, originalURL, Code(customAlias))
	}

	for attempt := 1; ; attempt++ {
		id, err := s.allocate(ctx)
		if err != nil {
			return "", err
		}

		link := &ShortLink{
			ID:          id,
			Code:        Code(base62.Encode(id)),
			OriginalURL: originalURL,
			CreatedAt:   time.Now().UTC(),
		}

		err = s.create(ctx, link)
		if err == nil {
			return link.Code, nil
		}

		if !errors.Is(err, ErrAliasConflict) || attempt == maxDerivedAttempts {
			return "", err
		}

		s.logger.Warn("derived code taken by alias, allocating again",
			zap.String("code", string(link.Code)),
			zap.Uint64("id", id),
		)
	}
}

func (s *Service) shortenWithAlias(ctx context.Context, originalURL string, alias Code) (Code, error) {
	id, err := s.allocate(ctx)
	if err != nil {
		return "", err
	}

	// Fast path only: the unique constraint enforced by Create is authoritative.
	_, err = s.store.FindByCode(ctx, alias)

	switch {
	case err == nil:
		return "", fmt.Errorf("%w: %s", ErrAliasConflict, alias)
	case !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("%w: find alias: %w", ErrUnavailable, err)
	}

	link := &ShortLink{
		ID:          id,
		Code:        alias,
		OriginalURL: originalURL,
		CreatedAt:   time.Now().UTC(),
	}

	if err = s.create(ctx, link); err != nil {
		return "", err
	}

	return alias, nil
}

func (s *Service) allocate(ctx context.Context) (uint64, error) {
	id, err := s.store.AllocateID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: allocate id: %w", ErrUnavailable, err)
	}

	return id, nil
}

func (s *Service) create(ctx context.Context, link *ShortLink) error {
	err := s.store.Create(ctx, link)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAliasConflict):
		return fmt.Errorf("%w: %s", ErrAliasConflict, link.Code)
	default:
		return fmt.Errorf("%w: create link: %w", ErrUnavailable, err)
	}
}

// Resolve returns the original URL for code, consulting the cache first.
// Cache failures are logged and never returned.
func (s *Service) Resolve(ctx context.Context, code Code) (string, error) {
	if url, ok := s.getFromCache(ctx, code); ok {
		return url, nil
	}

	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("%w: find code: %w", ErrUnavailable, err)
	}

	s.populateCache(ctx, code, link.OriginalURL)

	return link.OriginalURL, nil
}

func (s *Service) getFromCache(ctx context.Context, code Code) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	url, ok, err := s.cache.Get(ctx, code)
	if err != nil {
		s.logger.Warn("cache get failed, falling back to store",
			zap.String("code", string(code)),
			zap.Error(err),
		)

		return "", false
	}

	return url, ok
}

func (s *Service) populateCache(ctx context.Context, code Code, url string) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, code, url, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}
