// Package memory provides an in-process outbound.CacheRepository, useful for local development
// and tests where a real Redis instance is not available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/nutricore/internal/ports/outbound"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository implements outbound.CacheRepository over an in-process map.
type CacheRepository struct {
	mu   sync.RWMutex
	data map[string]cacheItem
}

// NewCacheRepository creates an in-memory cache repository with a background expiry sweep.
func NewCacheRepository() outbound.CacheRepository {
	repo := &CacheRepository{data: make(map[string]cacheItem)}
	go repo.sweep()
	return repo
}

// Get implements outbound.CacheRepository; a miss or expired entry returns (nil, nil) per §6.2.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.data[key]
	if !ok || (!item.expiresAt.IsZero() && time.Now().After(item.expiresAt)) {
		return nil, nil
	}
	return item.value, nil
}

// Set implements outbound.CacheRepository.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	r.data[key] = cacheItem{value: value, expiresAt: expiresAt}
	return nil
}

// Delete implements outbound.CacheRepository.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.data, key)
	}
	return nil
}

func (r *CacheRepository) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		r.mu.Lock()
		for key, item := range r.data {
			if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
				delete(r.data, key)
			}
		}
		r.mu.Unlock()
	}
}
