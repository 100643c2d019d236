package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(rate float64, tier tariff.Tier, scopeKey string) *tariff.CacheEntry {
	return &tariff.CacheEntry{
		Rate:       decimal.NewFromFloat(rate),
		Tier:       tier,
		Source:     "admin",
		ScopeKey:   scopeKey,
		ResolvedAt: time.Now(),
	}
}

func TestInMemoryRateCache_SetAndGet(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()
	ctx := context.Background()

	entry := sampleEntry(0.18, tariff.TierCountry, "country:IN")
	require.NoError(t, c.Set(ctx, "k1", entry, time.Minute, "country:IN"))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Rate.Equal(entry.Rate))
	assert.Equal(t, tariff.TierCountry, got.Tier)
}

func TestInMemoryRateCache_MissReturnsNil(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()

	got, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryRateCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", sampleEntry(0.10, tariff.TierGlobal, "global"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Count())
}

func TestInMemoryRateCache_InvalidateTagDeletesAllMembers(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "in", sampleEntry(0.10, tariff.TierRegion, "region:saarc"), time.Minute, "country:IN", "region:saarc"))
	require.NoError(t, c.Set(ctx, "np", sampleEntry(0.10, tariff.TierRegion, "region:saarc"), time.Minute, "country:NP", "region:saarc"))
	require.NoError(t, c.Set(ctx, "de", sampleEntry(0.19, tariff.TierCountry, "country:DE"), time.Minute, "country:DE", "region:eu"))

	require.NoError(t, c.InvalidateTags(ctx, "region:saarc"))

	in, _ := c.Get(ctx, "in")
	np, _ := c.Get(ctx, "np")
	de, _ := c.Get(ctx, "de")
	assert.Nil(t, in)
	assert.Nil(t, np)
	assert.NotNil(t, de)
}

func TestInMemoryRateCache_OverwriteReplacesTagMemberships(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", sampleEntry(0.10, tariff.TierRegion, "region:saarc"), time.Minute, "region:saarc"))
	require.NoError(t, c.Set(ctx, "k1", sampleEntry(0.18, tariff.TierCountry, "country:IN"), time.Minute, "country:IN"))

	// The stale region tag no longer reaches the rewritten entry
	require.NoError(t, c.InvalidateTags(ctx, "region:saarc"))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Rate.Equal(decimal.NewFromFloat(0.18)))
}

func TestInMemoryRateCache_Flush(t *testing.T) {
	c := NewInMemoryRateCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", sampleEntry(0.10, tariff.TierGlobal, "global"), time.Minute, "service:x"))
	require.NoError(t, c.Flush(ctx))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Count())
}

// memoryOverrideStore is a minimal mutable override store for resolver tests
type memoryOverrideStore struct {
	byScopeKey map[string]tariff.RateOverride
}

func newMemoryOverrideStore() *memoryOverrideStore {
	return &memoryOverrideStore{byScopeKey: make(map[string]tariff.RateOverride)}
}

func (s *memoryOverrideStore) Upsert(ctx context.Context, o *tariff.RateOverride) error {
	s.byScopeKey[o.Scope.Key()] = *o
	return nil
}

func (s *memoryOverrideStore) FindActiveByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope) (*tariff.RateOverride, error) {
	if o, ok := s.byScopeKey[scope.Key()]; ok {
		return &o, nil
	}
	return nil, shared.ErrNotFound
}

func (s *memoryOverrideStore) FindActiveByScopeKeys(ctx context.Context, serviceID uuid.UUID, scopeKeys []string) ([]tariff.RateOverride, error) {
	var out []tariff.RateOverride
	for _, key := range scopeKeys {
		if o, ok := s.byScopeKey[key]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memoryOverrideStore) FindActiveCountryRates(ctx context.Context, serviceID uuid.UUID) ([]tariff.RateOverride, error) {
	var out []tariff.RateOverride
	for key, o := range s.byScopeKey {
		if strings.HasPrefix(key, "country:") {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memoryOverrideStore) HistoryByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope, filter shared.Filter) ([]tariff.RateOverride, error) {
	if o, ok := s.byScopeKey[scope.Key()]; ok {
		return []tariff.RateOverride{o}, nil
	}
	return nil, nil
}

// saarcCountries covers the membership needed by the cascade test
type saarcCountries struct{}

func (saarcCountries) HasCountry(code string) bool { return code == "IN" || code == "NP" }
func (saarcCountries) HasRegion(key string) bool   { return key == "saarc" }
func (saarcCountries) HasContinent(name string) bool {
	return name == "asia"
}
func (saarcCountries) ContinentOf(code string) string { return "asia" }
func (saarcCountries) RegionsOf(code string) []string { return []string{"saarc"} }
func (saarcCountries) CountriesInRegion(string) []string {
	return []string{"IN", "NP"}
}
func (saarcCountries) CountriesInContinent(string) []string {
	return []string{"IN", "NP"}
}
func (saarcCountries) CountryCount() int { return 2 }

// A region rate cached for a member country must not survive a write to
// that region, even though the cached entry's own key names the country.
func TestInMemoryRateCache_RegionWriteReachesCachedCountryResolution(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryRateCache()
	defer c.Close()

	store := newMemoryOverrideStore()
	serviceID := uuid.New()
	countries := saarcCountries{}
	resolver := tariff.NewResolver(store, countries, c)

	regionRate, err := tariff.NewRateOverride(serviceID, tariff.RegionScope("saarc"), decimal.NewFromFloat(0.10), "admin", "")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, regionRate))

	first, err := resolver.Resolve(ctx, serviceID, "IN", "")
	require.NoError(t, err)
	assert.True(t, first.Rate.Rate.Equal(decimal.NewFromFloat(0.10)))
	assert.False(t, first.Cached)

	// The write path: update the store, then invalidate by scope tags
	updated, err := tariff.NewRateOverride(serviceID, tariff.RegionScope("saarc"), decimal.NewFromFloat(0.12), "admin", "")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, updated))
	require.NoError(t, c.InvalidateTags(ctx, tariff.InvalidationTags(serviceID, tariff.RegionScope("saarc"))...))

	second, err := resolver.Resolve(ctx, serviceID, "IN", "")
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.True(t, second.Rate.Rate.Equal(decimal.NewFromFloat(0.12)),
		"resolution served a stale region rate after the region was updated")

	// And the refreshed entry is served from cache until the next write
	third, err := resolver.Resolve(ctx, serviceID, "IN", "")
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.True(t, third.Rate.Rate.Equal(decimal.NewFromFloat(0.12)))
}
