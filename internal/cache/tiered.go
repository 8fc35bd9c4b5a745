package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/domain"
)

// TieredCache consults its tiers in order and backfills faster tiers on a hit in a slower one.
type TieredCache struct {
	tiers []domain.ChecklistCache
}

// NewTieredCache composes tiers from fastest to slowest.
func NewTieredCache(tiers ...domain.ChecklistCache) *TieredCache {
	return &TieredCache{tiers: tiers}
}

func (t *TieredCache) Get(ctx context.Context, key string) (*domain.Checklist, bool) {
	for i, tier := range t.tiers {
		checklist, ok := tier.Get(ctx, key)
		if !ok {
			continue
		}
		for _, faster := range t.tiers[:i] {
			faster.Set(ctx, key, checklist, 0)
		}
		return checklist, true
	}
	return nil, false
}

func (t *TieredCache) Set(ctx context.Context, key string, checklist *domain.Checklist, ttl time.Duration) {
	for _, tier := range t.tiers {
		tier.Set(ctx, key, checklist, ttl)
	}
}

func (t *TieredCache) Close() error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the configured cache: a memory tier, plus Redis when a URL is set. An unreachable
// Redis is logged and skipped. It returns nil when caching is disabled.
func New(config domain.CacheConfig, logger *logrus.Logger) domain.ChecklistCache {
	if !config.Enabled {
		return nil
	}
	tiers := []domain.ChecklistCache{NewMemoryCache(config.MemoryMaxItems, config.DefaultTTL)}
	if config.RedisURL != "" {
		redisCache, err := NewRedisCache(config, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable, continuing with memory cache only")
		} else {
			tiers = append(tiers, redisCache)
		}
	}
	return NewTieredCache(tiers...)
}
