package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100

	// keyPrefix namespaces every cache entry and tag set
	keyPrefix = "tariff:"
	tagPrefix = "tariff:tag:"
)

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisRateCache implements tariff.RateCache using Redis.
//
// Each entry is stored as a JSON string under its cache key, and the key is
// added to one Redis set per tag. Invalidating a tag deletes every member of
// its set, so a region or continent write reaches entries for all member
// countries regardless of which tier those entries resolved at. Tag sets
// expire later than their entries; a dangling member in a tag set resolves
// to a harmless no-op delete.
type RedisRateCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	config     tariff.CacheConfig
	logger     *zap.Logger
}

// RedisRateCacheOption is a functional option for configuring the cache
type RedisRateCacheOption func(*RedisRateCache)

// WithCacheConfig sets the cache configuration
func WithCacheConfig(config tariff.CacheConfig) RedisRateCacheOption {
	return func(c *RedisRateCache) {
		c.config = config
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisRateCacheOption {
	return func(c *RedisRateCache) {
		c.logger = logger
	}
}

// NewRedisRateCache creates a new Redis-based rate cache
func NewRedisRateCache(cfg RedisConfig, opts ...RedisRateCacheOption) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisRateCache{
		client:     client,
		ownsClient: true, // We created this client, so we own it
		config:     tariff.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisRateCacheWithClient creates a cache with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisRateCacheWithClient(client *redis.Client, opts ...RedisRateCacheOption) *RedisRateCache {
	cache := &RedisRateCache{
		client:     client,
		ownsClient: false, // Client is shared, don't close it
		config:     tariff.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

func (c *RedisRateCache) entryKey(key string) string {
	return keyPrefix + key
}

func (c *RedisRateCache) tagKey(tag string) string {
	return tagPrefix + tag
}

// Get retrieves a resolution entry from cache
func (c *RedisRateCache) Get(ctx context.Context, key string) (*tariff.CacheEntry, error) {
	cacheKey := c.entryKey(key)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		// Cache miss
		c.logger.Debug("Cache miss for resolution", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get resolution from cache",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get resolution from cache: %w", err)
	}

	var entry tariff.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("Failed to unmarshal cached resolution",
			zap.String("key", key),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal resolution: %w", err)
	}

	c.logger.Debug("Cache hit for resolution", zap.String("key", key))
	return &entry, nil
}

// Set stores a resolution entry and registers it under every given tag
func (c *RedisRateCache) Set(ctx context.Context, key string, entry *tariff.CacheEntry, ttl time.Duration, tags ...string) error {
	if entry == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.EntryTTL
	}

	cacheKey := c.entryKey(key)

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("Failed to marshal resolution",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to marshal resolution: %w", err)
	}

	// Tag sets outlive their members so an entry never becomes unreachable
	// by tag before it expires on its own.
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, cacheKey, data, ttl)
	for _, tag := range tags {
		tagKey := c.tagKey(tag)
		pipe.SAdd(ctx, tagKey, cacheKey)
		pipe.Expire(ctx, tagKey, 2*ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("Failed to set resolution in cache",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to set resolution in cache: %w", err)
	}

	c.logger.Debug("Cached resolution",
		zap.String("key", key),
		zap.Int("tags", len(tags)),
		zap.Duration("ttl", ttl))
	return nil
}

// InvalidateTags deletes every entry registered under any of the given tags
func (c *RedisRateCache) InvalidateTags(ctx context.Context, tags ...string) error {
	var deletedCount int64

	for _, tag := range tags {
		tagKey := c.tagKey(tag)

		members, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			c.logger.Error("Failed to read tag set",
				zap.String("tag", tag),
				zap.Error(err))
			return fmt.Errorf("failed to read tag set: %w", err)
		}

		toDelete := append(members, tagKey)
		deleted, err := c.client.Del(ctx, toDelete...).Result()
		if err != nil {
			c.logger.Error("Failed to delete tagged entries",
				zap.String("tag", tag),
				zap.Error(err))
			return fmt.Errorf("failed to delete tagged entries: %w", err)
		}
		deletedCount += deleted
	}

	c.logger.Info("Invalidated tagged cache entries",
		zap.Strings("tags", tags),
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Flush removes all cache entries and tag sets
func (c *RedisRateCache) Flush(ctx context.Context) error {
	// Use SCAN to avoid blocking Redis with KEYS
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, keyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan cache keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete cache keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Flushed rate cache",
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases any resources held by the cache
func (c *RedisRateCache) Close() error {
	// Only close client if we own it
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisRateCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisRateCache implements RateCache
var _ tariff.RateCache = (*RedisRateCache)(nil)
