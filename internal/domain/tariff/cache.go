package tariff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CacheEntry is a memoized resolution result. Entries are never mutated in
// place; invalidation deletes them and the next resolution recomputes.
type CacheEntry struct {
	Rate       decimal.Decimal `json:"rate"`
	Tier       Tier            `json:"tier"`
	Source     string          `json:"source"`
	ScopeKey   string          `json:"scope_key"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// RateCache memoizes resolution results. Every entry is stored under a set
// of tags naming each scope that could influence it (its country, each
// region and the continent the country belongs to, and the service), so a
// write at any tier can reach dependent entries without knowing which tier
// the cached resolution bottomed out at.
//
// The cache is advisory: implementations return errors, but callers treat
// get/set/invalidate failures as misses and log them. A rate write never
// blocks on cache success.
type RateCache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration, tags ...string) error
	// InvalidateTags deletes every entry stored under any of the given tags
	InvalidateTags(ctx context.Context, tags ...string) error
	// Flush removes all entries
	Flush(ctx context.Context) error
}

// CacheConfig holds cache behavior settings
type CacheConfig struct {
	EntryTTL time.Duration
}

// DefaultCacheConfig returns the default cache settings
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		EntryTTL: 15 * time.Minute,
	}
}

// ResolutionCacheKey derives the deterministic cache key for one resolution.
// Classification may be empty for non-product lookups.
func ResolutionCacheKey(serviceID uuid.UUID, countryCode, classificationCode string) string {
	raw := strings.Join([]string{serviceID.String(), strings.ToUpper(countryCode), classificationCode}, "|")
	sum := sha256.Sum256([]byte(raw))
	return "resolve:" + hex.EncodeToString(sum[:8])
}

// Cache tags. A resolution entry carries the country tag, one region tag per
// region membership, the continent tag, and the service tag.

// CountryTag returns the invalidation tag for a country scope
func CountryTag(code string) string {
	return "country:" + strings.ToUpper(code)
}

// RegionTag returns the invalidation tag for a region scope
func RegionTag(key string) string {
	return "region:" + strings.ToLower(key)
}

// ContinentTag returns the invalidation tag for a continent scope
func ContinentTag(name string) string {
	return "continent:" + strings.ToLower(name)
}

// ServiceTag returns the invalidation tag covering every entry of a service
func ServiceTag(serviceID uuid.UUID) string {
	return "service:" + serviceID.String()
}

// MatrixTag covers the cached administrative rate-overview matrix
func MatrixTag(serviceID uuid.UUID) string {
	return "matrix:" + serviceID.String()
}

// InvalidationTags returns every tag a write at the given scope must clear.
// A write at a broad scope reaches entries for every member country even
// when those entries were cached before any narrower override existed.
func InvalidationTags(serviceID uuid.UUID, scope Scope) []string {
	switch scope.Kind {
	case ScopeKindGlobal:
		return []string{ServiceTag(serviceID)}
	case ScopeKindContinent:
		return []string{ContinentTag(scope.Continent)}
	case ScopeKindRegion:
		return []string{RegionTag(scope.Region)}
	case ScopeKindCountry:
		return []string{CountryTag(scope.CountryCode)}
	case ScopeKindProduct:
		// Product writes clear the whole country. Broader than strictly
		// needed, but a stale entry is worse than a recomputation.
		return []string{CountryTag(scope.CountryCode)}
	default:
		return nil
	}
}

// EntryTags returns every tag a resolution entry is stored under
func EntryTags(serviceID uuid.UUID, countryCode string, ref CountryReference) []string {
	tags := []string{ServiceTag(serviceID), CountryTag(countryCode)}
	for _, region := range ref.RegionsOf(countryCode) {
		tags = append(tags, RegionTag(region))
	}
	if continent := ref.ContinentOf(countryCode); continent != "" {
		tags = append(tags, ContinentTag(continent))
	}
	return tags
}
