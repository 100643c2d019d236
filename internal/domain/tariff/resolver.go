package tariff

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolution is the outcome of walking the precedence chain for one lookup
type Resolution struct {
	Rate     CacheEntry
	ScopeKey string
	Cached   bool
}

// Resolver walks the scope precedence chain for a (service, country,
// classification) tuple and returns the most specific active rate.
// It follows a read-through caching pattern:
//  1. Check the calculation cache
//  2. On a miss, load the candidate overrides from the store
//  3. Pick the most specific match (a more specific match always wins,
//     even when numerically worse for the customer)
//  4. Populate the cache, tagged with every scope that could affect it
//
// Resolution is a pure read path and safe for unlimited concurrency; a race
// between two resolutions of the same key is harmless since both compute
// the same answer from the same override state.
type Resolver struct {
	overrides OverrideRepository
	countries CountryReference
	cache     RateCache
	logger    *zap.Logger
	config    CacheConfig
}

// ResolverOption is a functional option for configuring the resolver
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithResolverCacheConfig sets the cache configuration
func WithResolverCacheConfig(config CacheConfig) ResolverOption {
	return func(r *Resolver) {
		r.config = config
	}
}

// NewResolver creates a new rate resolver. The cache may be nil, in which
// case every resolution goes to the override store.
func NewResolver(
	overrides OverrideRepository,
	countries CountryReference,
	cache RateCache,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		overrides: overrides,
		countries: countries,
		cache:     cache,
		logger:    zap.NewNop(),
		config:    DefaultCacheConfig(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the effective rate for a service in a country, optionally
// narrowed by a product classification code. Returns ErrNoRateConfigured
// when no tier of the chain has an active override, and ErrInvalidScope for
// an unknown country.
func (r *Resolver) Resolve(ctx context.Context, serviceID uuid.UUID, countryCode, classificationCode string) (*Resolution, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if !r.countries.HasCountry(countryCode) {
		return nil, ErrInvalidScope
	}

	cacheKey := ResolutionCacheKey(serviceID, countryCode, classificationCode)

	if r.cache != nil {
		entry, err := r.cache.Get(ctx, cacheKey)
		if err != nil {
			r.logger.Warn("Cache get failed, falling back to store",
				zap.String("key", cacheKey),
				zap.Error(err))
		} else if entry != nil {
			r.logger.Debug("Cache hit for rate resolution",
				zap.String("country", countryCode),
				zap.String("tier", string(entry.Tier)))
			return &Resolution{Rate: *entry, ScopeKey: entry.ScopeKey, Cached: true}, nil
		}
	}

	candidates := r.candidateScopes(countryCode, classificationCode)
	keys := make([]string, len(candidates))
	for i, scope := range candidates {
		keys[i] = scope.Key()
	}

	overrides, err := r.overrides.FindActiveByScopeKeys(ctx, serviceID, keys)
	if err != nil {
		return nil, err
	}

	best := pickMostSpecific(overrides)
	if best == nil {
		return nil, ErrNoRateConfigured
	}

	entry := CacheEntry{
		Rate:       best.Rate,
		Tier:       best.TierLabel,
		Source:     best.SourceLabel,
		ScopeKey:   best.Scope.Key(),
		ResolvedAt: time.Now(),
	}

	if r.cache != nil {
		tags := EntryTags(serviceID, countryCode, r.countries)
		if err := r.cache.Set(ctx, cacheKey, &entry, r.config.EntryTTL, tags...); err != nil {
			r.logger.Warn("Failed to cache resolution",
				zap.String("key", cacheKey),
				zap.Error(err))
		}
	}

	return &Resolution{Rate: entry, ScopeKey: entry.ScopeKey}, nil
}

// candidateScopes builds the precedence chain for one lookup, most specific
// first. Region and continent membership comes from the country reference.
func (r *Resolver) candidateScopes(countryCode, classificationCode string) []Scope {
	scopes := make([]Scope, 0, 6)
	if classificationCode != "" {
		scopes = append(scopes, ProductScope(classificationCode, countryCode))
	}
	scopes = append(scopes, CountryScope(countryCode))
	for _, region := range r.countries.RegionsOf(countryCode) {
		scopes = append(scopes, RegionScope(region))
	}
	if continent := r.countries.ContinentOf(countryCode); continent != "" {
		scopes = append(scopes, ContinentScope(continent))
	}
	scopes = append(scopes, GlobalScope())
	return scopes
}

// pickMostSpecific returns the active override with the highest scope
// specificity. Ties between regions (a country in two regions with
// overrides in both) break on the later effective date.
func pickMostSpecific(overrides []RateOverride) *RateOverride {
	var best *RateOverride
	for i := range overrides {
		o := &overrides[i]
		if !o.IsActive {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		if o.Scope.Specificity() > best.Scope.Specificity() {
			best = o
		} else if o.Scope.Specificity() == best.Scope.Specificity() && o.EffectiveFrom.After(best.EffectiveFrom) {
			best = o
		}
	}
	return best
}
