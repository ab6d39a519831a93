package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ScoreCacheRepository remembers polarity scores by text so unchanged articles are not re-scored.
type ScoreCacheRepository interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, polarity float64) error
}

// NewRedisScoreCacheRepository creates a Redis backed score cache.
func NewRedisScoreCacheRepository(client *redis.Client, ttl time.Duration) ScoreCacheRepository {
	return &redisScoreCacheRepository{client: client, ttl: ttl}
}

type redisScoreCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *redisScoreCacheRepository) Get(ctx context.Context, key string) (float64, bool, error) {
	v, err := r.client.Get(ctx, common.RedisScoreCachePrefix+key).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cached score: %w", err)
	}
	return v, true, nil
}

func (r *redisScoreCacheRepository) Set(ctx context.Context, key string, polarity float64) error {
	if err := r.client.Set(ctx, common.RedisScoreCachePrefix+key, polarity, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached score: %w", err)
	}
	return nil
}

// NewMemoryScoreCacheRepository creates an in-process score cache.
func NewMemoryScoreCacheRepository(ttl time.Duration) ScoreCacheRepository {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &memoryScoreCacheRepository{cache: cache.New(ttl, 10*time.Minute)}
}

type memoryScoreCacheRepository struct {
	cache *cache.Cache
}

func (r *memoryScoreCacheRepository) Get(_ context.Context, key string) (float64, bool, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return 0, false, nil
	}
	return v.(float64), true, nil
}

func (r *memoryScoreCacheRepository) Set(_ context.Context, key string, polarity float64) error {
	r.cache.Set(key, polarity, cache.DefaultExpiration)
	return nil
}

// NewCachedSentimentRepository wraps next with a score cache. Cache failures are logged and
// fall through to next; they never fail a scoring call.
func NewCachedSentimentRepository(provider string, next SentimentRepository, scoreCache ScoreCacheRepository, log *logger.Logger) SentimentRepository {
	return &cachedSentimentRepository{
		provider: provider,
		next:     next,
		cache:    scoreCache,
		logger:   log,
	}
}

type cachedSentimentRepository struct {
	provider string
	next     SentimentRepository
	cache    ScoreCacheRepository
	logger   *logger.Logger
}

func (r *cachedSentimentRepository) ScorePolarity(ctx context.Context, text string) (float64, error) {
	key := ScoreCacheKey(r.provider, text)
	if v, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("Failed to read score cache", logger.ErrorField(err), logger.StringField("key", key))
	} else if ok {
		return v, nil
	}

	v, err := r.next.ScorePolarity(ctx, text)
	if err != nil {
		return 0, err
	}
	if err := r.cache.Set(ctx, key, v); err != nil {
		r.logger.Warn("Failed to write score cache", logger.ErrorField(err), logger.StringField("key", key))
	}
	return v, nil
}

// ScoreCacheKey derives the cache key of a text for the given provider.
func ScoreCacheKey(provider, text string) string {
	sum := sha256.Sum256([]byte(text))
	return provider + ":" + hex.EncodeToString(sum[:])
}
