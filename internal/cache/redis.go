package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/preventive-care-server/internal/domain"
)

// RedisCache is the shared tier. Every call goes through a circuit breaker and any failure
// is reported as a miss.
type RedisCache struct {
	client     *redis.Client
	breaker    *gobreaker.CircuitBreaker
	prefix     string
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// cachedChecklist wraps a checklist with metadata
type cachedChecklist struct {
	Checklist *domain.Checklist `json:"checklist"`
	CachedAt  time.Time         `json:"cached_at"`
}

// NewRedisCache connects to the Redis URL in config and verifies the connection.
func NewRedisCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, config.KeyPrefix, config.DefaultTTL, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, defaultTTL time.Duration, logger *logrus.Logger) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "checklist-redis",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return &RedisCache{
		client:     client,
		breaker:    breaker,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*domain.Checklist, bool) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Redis checklist lookup failed, treating as miss")
		return nil, false
	}
	raw, ok := result.([]byte)
	if !ok || raw == nil {
		return nil, false
	}

	var cached cachedChecklist
	if err := json.Unmarshal(raw, &cached); err != nil || cached.Checklist == nil {
		// Remove corrupted cache entry
		r.client.Del(ctx, r.prefix+key)
		return nil, false
	}
	return cached.Checklist, true
}

func (r *RedisCache) Set(ctx context.Context, key string, checklist *domain.Checklist, ttl time.Duration) {
	if checklist == nil {
		return
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	data, err := json.Marshal(cachedChecklist{Checklist: checklist, CachedAt: time.Now().UTC()})
	if err != nil {
		r.logger.WithError(err).Warn("Failed to marshal checklist for cache")
		return
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.prefix+key, data, ttl).Err()
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Redis checklist store failed")
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
