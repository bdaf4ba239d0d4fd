package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/legacyfund/internal/domain"
)

const redisKey = "rates:latest"

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares the snapshot between service instances. Redis failures are
// logged and the underlying provider is used instead.
type RedisCache struct {
	store  redisStore
	next   Provider
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(store redisStore, next Provider, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{store: store, next: next, ttl: ttl, logger: logger}
}

func (c *RedisCache) Fetch(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	raw, err := c.store.Get(ctx, redisKey).Bytes()
	switch {
	case err == nil:
		var snap domain.ExchangeRateSnapshot
		if jsonErr := json.Unmarshal(raw, &snap); jsonErr == nil && snap.Loaded() {
			return snap, nil
		}
		c.logger.Warn("discarding unreadable cached rates", zap.String("key", redisKey))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("rates cache read failed", zap.Error(err))
	}

	snap, err := c.next.Fetch(ctx)
	if err != nil {
		return domain.ExchangeRateSnapshot{}, err
	}
	if !snap.Loaded() {
		return domain.ExchangeRateSnapshot{}, ErrNotLoaded
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return snap, nil
	}
	if err := c.store.Set(ctx, redisKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("rates cache write failed", zap.Error(err))
	}
	return snap, nil
}
