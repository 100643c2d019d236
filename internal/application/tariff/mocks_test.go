package tariff

import (
	"context"
	"strings"
	"time"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockServiceRepository is a mock implementation of tariff.ServiceRepository
type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) Create(ctx context.Context, service *tariff.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) Update(ctx context.Context, service *tariff.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*tariff.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tariff.Service), args.Error(1)
}

func (m *MockServiceRepository) FindByKey(ctx context.Context, key string) (*tariff.Service, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tariff.Service), args.Error(1)
}

func (m *MockServiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tariff.Service, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tariff.Service), args.Error(1)
}

// MockOverrideRepository is a mock implementation of tariff.OverrideRepository
type MockOverrideRepository struct {
	mock.Mock
}

func (m *MockOverrideRepository) Upsert(ctx context.Context, override *tariff.RateOverride) error {
	args := m.Called(ctx, override)
	return args.Error(0)
}

func (m *MockOverrideRepository) FindActiveByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope) (*tariff.RateOverride, error) {
	args := m.Called(ctx, serviceID, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tariff.RateOverride), args.Error(1)
}

func (m *MockOverrideRepository) FindActiveByScopeKeys(ctx context.Context, serviceID uuid.UUID, scopeKeys []string) ([]tariff.RateOverride, error) {
	args := m.Called(ctx, serviceID, scopeKeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tariff.RateOverride), args.Error(1)
}

func (m *MockOverrideRepository) FindActiveCountryRates(ctx context.Context, serviceID uuid.UUID) ([]tariff.RateOverride, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tariff.RateOverride), args.Error(1)
}

func (m *MockOverrideRepository) HistoryByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope, filter shared.Filter) ([]tariff.RateOverride, error) {
	args := m.Called(ctx, serviceID, scope, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tariff.RateOverride), args.Error(1)
}

// MockRateCache is a mock implementation of tariff.RateCache
type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) Get(ctx context.Context, key string) (*tariff.CacheEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tariff.CacheEntry), args.Error(1)
}

func (m *MockRateCache) Set(ctx context.Context, key string, entry *tariff.CacheEntry, ttl time.Duration, tags ...string) error {
	args := m.Called(ctx, key, entry, ttl, tags)
	return args.Error(0)
}

func (m *MockRateCache) InvalidateTags(ctx context.Context, tags ...string) error {
	args := m.Called(ctx, tags)
	return args.Error(0)
}

func (m *MockRateCache) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMinimumValuationSource is a mock implementation of tariff.MinimumValuationSource
type MockMinimumValuationSource struct {
	mock.Mock
}

func (m *MockMinimumValuationSource) MinimumValuation(ctx context.Context, classificationCode, countryCode string) (*decimal.Decimal, error) {
	args := m.Called(ctx, classificationCode, countryCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*decimal.Decimal), args.Error(1)
}

// MockVolumeSource is a mock implementation of tariff.VolumeSource
type MockVolumeSource struct {
	mock.Mock
}

func (m *MockVolumeSource) VolumeFor(ctx context.Context, countryCodes []string) (int64, decimal.Decimal, error) {
	args := m.Called(ctx, countryCodes)
	return args.Get(0).(int64), args.Get(1).(decimal.Decimal), args.Error(2)
}

// stubCountries is a fixed country reference for tests
type stubCountries struct{}

var stubCountryData = map[string]struct {
	continent string
	regions   []string
}{
	"IN": {"asia", []string{"saarc"}},
	"NP": {"asia", []string{"saarc"}},
	"BD": {"asia", []string{"saarc"}},
	"US": {"north america", nil},
	"DE": {"europe", []string{"eu"}},
	"FR": {"europe", []string{"eu"}},
	"BR": {"south america", nil},
}

func (stubCountries) HasCountry(code string) bool {
	_, ok := stubCountryData[strings.ToUpper(code)]
	return ok
}

func (stubCountries) HasRegion(key string) bool {
	return key == "saarc" || key == "eu"
}

func (stubCountries) HasContinent(name string) bool {
	for _, entry := range stubCountryData {
		if entry.continent == strings.ToLower(name) {
			return true
		}
	}
	return false
}

func (stubCountries) ContinentOf(code string) string {
	return stubCountryData[strings.ToUpper(code)].continent
}

func (stubCountries) RegionsOf(code string) []string {
	return stubCountryData[strings.ToUpper(code)].regions
}

func (stubCountries) CountriesInRegion(key string) []string {
	var codes []string
	for code, entry := range stubCountryData {
		for _, region := range entry.regions {
			if region == key {
				codes = append(codes, code)
			}
		}
	}
	return codes
}

func (stubCountries) CountriesInContinent(name string) []string {
	var codes []string
	for code, entry := range stubCountryData {
		if entry.continent == strings.ToLower(name) {
			codes = append(codes, code)
		}
	}
	return codes
}

func (stubCountries) CountryCount() int {
	return len(stubCountryData)
}

func newTestService(t interface{ Fatalf(string, ...interface{}) }) *tariff.Service {
	service, err := tariff.NewService("customs_duty", "Customs Duty", tariff.PricingTypePercentage)
	if err != nil {
		t.Fatalf("newTestService: %v", err)
	}
	return service
}
