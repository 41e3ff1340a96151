package store

import (
	"context"
	"strconv"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RateLimitRedisStore keeps one sorted set per key, scored by request time in
// microseconds, so every server replica shares the same windows.
type RateLimitRedisStore struct {
	client redis.Cmdable
	prefix string
	member func() string
	now    func() time.Time
}

// NewRateLimitRedisStore creates a Redis-backed rate limit store.
func NewRateLimitRedisStore(client redis.Cmdable) (*RateLimitRedisStore, error) {
	member, err := nanoid.Standard(12)
	if err != nil {
		return nil, err
	}

	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
		member: member,
		now:    time.Now,
	}, nil
}

func (s *RateLimitRedisStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()
	score := float64(now.UnixMicro())
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
	redisKey := s.prefix + key

	var card *redis.IntCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: s.member()})
		card = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return card.Val(), nil
}

var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
