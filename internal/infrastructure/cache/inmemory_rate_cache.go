package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concierge/backend/internal/domain/tariff"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryRateCache implements tariff.RateCache with process-local storage.
// Suitable for single-instance deployments and tests; entries are not shared
// across processes, so a multi-instance deployment needs the Redis cache.
type InMemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	tags    map[string]map[string]struct{} // tag -> set of entry keys
	config  tariff.CacheConfig
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

type memoryEntry struct {
	value     tariff.CacheEntry
	tags      []string
	expiresAt time.Time
}

func (e *memoryEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryRateCacheOption is a functional option for configuring the cache
type InMemoryRateCacheOption func(*InMemoryRateCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config tariff.CacheConfig) InMemoryRateCacheOption {
	return func(c *InMemoryRateCache) {
		c.config = config
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryRateCacheOption {
	return func(c *InMemoryRateCache) {
		c.logger = logger
	}
}

// NewInMemoryRateCache creates a new in-memory rate cache
func NewInMemoryRateCache(opts ...InMemoryRateCacheOption) *InMemoryRateCache {
	cache := &InMemoryRateCache{
		entries: make(map[string]*memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		config:  tariff.DefaultCacheConfig(),
		logger:  zap.NewNop(),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a resolution entry from cache
func (c *InMemoryRateCache) Get(ctx context.Context, key string) (*tariff.CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !entry.isExpired() {
		atomic.AddInt64(&c.hits, 1)
		c.logger.Debug("Cache hit for resolution", zap.String("key", key))
		value := entry.value
		return &value, nil
	}

	if ok {
		// Expired, remove eagerly
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Cache miss for resolution", zap.String("key", key))
	return nil, nil
}

// Set stores a resolution entry and registers it under every given tag
func (c *InMemoryRateCache) Set(ctx context.Context, key string, entry *tariff.CacheEntry, ttl time.Duration, tags ...string) error {
	if entry == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.EntryTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-registering a key drops its previous tag memberships first
	c.removeLocked(key)

	c.entries[key] = &memoryEntry{
		value:     *entry,
		tags:      tags,
		expiresAt: time.Now().Add(ttl),
	}
	for _, tag := range tags {
		members, ok := c.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			c.tags[tag] = members
		}
		members[key] = struct{}{}
	}

	c.logger.Debug("Cached resolution",
		zap.String("key", key),
		zap.Int("tags", len(tags)),
		zap.Duration("ttl", ttl))
	return nil
}

// InvalidateTags deletes every entry registered under any of the given tags
func (c *InMemoryRateCache) InvalidateTags(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var deleted int
	for _, tag := range tags {
		for key := range c.tags[tag] {
			c.removeLocked(key)
			deleted++
		}
		delete(c.tags, tag)
	}

	c.logger.Debug("Invalidated tagged cache entries",
		zap.Strings("tags", tags),
		zap.Int("deleted_count", deleted))
	return nil
}

// Flush removes all entries and tag sets
func (c *InMemoryRateCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*memoryEntry)
	c.tags = make(map[string]map[string]struct{})
	c.mu.Unlock()

	c.logger.Info("Flushed in-memory rate cache")
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryRateCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryRateCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of live entries in the cache
func (c *InMemoryRateCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// removeLocked deletes an entry and its tag memberships. Caller holds mu.
func (c *InMemoryRateCache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range entry.tags {
		if members, ok := c.tags[tag]; ok {
			delete(members, key)
			if len(members) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryRateCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryRateCache) doCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for key, entry := range c.entries {
		if entry.isExpired() {
			c.removeLocked(key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryRateCache implements RateCache
var _ tariff.RateCache = (*InMemoryRateCache)(nil)
