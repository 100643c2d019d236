package tariff

import (
	"context"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverrideRepository persists rate overrides.
// Upsert must be atomic from a reader's perspective: concurrent readers see
// either the previous active override or the new one, never both.
type OverrideRepository interface {
	// Upsert deactivates the current active override for the exact
	// (service, scope) slot and inserts the new row in one transaction.
	Upsert(ctx context.Context, override *RateOverride) error

	// FindActiveByScope returns the single active override for a scope,
	// or shared.ErrNotFound.
	FindActiveByScope(ctx context.Context, serviceID uuid.UUID, scope Scope) (*RateOverride, error)

	// FindActiveByScopeKeys returns all active overrides for a service whose
	// scope key is in the candidate set. Used by the resolver, which builds
	// the candidate chain for one country.
	FindActiveByScopeKeys(ctx context.Context, serviceID uuid.UUID, scopeKeys []string) ([]RateOverride, error)

	// FindActiveCountryRates returns every active country-scope override for
	// a service, for the administrative rate matrix.
	FindActiveCountryRates(ctx context.Context, serviceID uuid.UUID) ([]RateOverride, error)

	// HistoryByScope returns all rows (active and superseded) for one scope,
	// newest first.
	HistoryByScope(ctx context.Context, serviceID uuid.UUID, scope Scope, filter shared.Filter) ([]RateOverride, error)
}

// ServiceRepository persists priceable services
type ServiceRepository interface {
	Create(ctx context.Context, service *Service) error
	Update(ctx context.Context, service *Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*Service, error)
	FindByKey(ctx context.Context, key string) (*Service, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Service, error)
}

// CountryReference supplies continent and trade-region membership for
// countries. It is an external collaborator of the engine; implementations
// live outside the domain.
type CountryReference interface {
	HasCountry(code string) bool
	HasRegion(key string) bool
	HasContinent(name string) bool

	// ContinentOf returns the continent of a country, or "" when unknown
	ContinentOf(code string) string
	// RegionsOf returns every trade region the country belongs to
	RegionsOf(code string) []string
	// CountriesInRegion returns the member countries of a region
	CountriesInRegion(key string) []string
	// CountriesInContinent returns the member countries of a continent
	CountriesInContinent(name string) []string
	// CountryCount returns the total number of known countries
	CountryCount() int
}

// MinimumValuationSource supplies the administratively configured minimum
// valuation amount per (classification, country). Returns nil when none is
// configured. Read-only to the engine; catalog maintenance owns writes.
type MinimumValuationSource interface {
	MinimumValuation(ctx context.Context, classificationCode, countryCode string) (*decimal.Decimal, error)
}

// CountryVolume holds historical order statistics for one country
type CountryVolume struct {
	CountryCode   string
	OrderCount    int64
	AvgOrderValue decimal.Decimal
}

// VolumeSource supplies historical order volume, used only by revenue
// impact estimation.
type VolumeSource interface {
	// VolumeFor returns aggregate order count and volume-weighted average
	// order value across the given countries.
	VolumeFor(ctx context.Context, countryCodes []string) (orderCount int64, avgOrderValue decimal.Decimal, err error)
}
