// Package cache memoizes computed checklists keyed by profile and catalog version.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/preventive-care-server/internal/domain"
)

// MemoryCache is an in-process LRU tier with a single TTL for every entry.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.Checklist]
}

// NewMemoryCache creates a memory tier holding at most size checklists for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryCache{lru: expirable.NewLRU[string, *domain.Checklist](size, nil, ttl)}
}

// Get returns a copy of the cached checklist.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.Checklist, bool) {
	checklist, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneChecklist(checklist), true
}

// Set stores a copy of the checklist. The per-call ttl is ignored in favour of the tier's TTL.
func (m *MemoryCache) Set(_ context.Context, key string, checklist *domain.Checklist, _ time.Duration) {
	if checklist == nil {
		return
	}
	m.lru.Add(key, cloneChecklist(checklist))
}

// Len reports the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

func (m *MemoryCache) Close() error {
	m.lru.Purge()
	return nil
}

func cloneChecklist(c *domain.Checklist) *domain.Checklist {
	out := *c
	out.Recommendations = append([]domain.Recommendation(nil), c.Recommendations...)
	return &out
}
