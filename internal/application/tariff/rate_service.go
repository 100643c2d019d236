package tariff

import (
	"context"
	"errors"
	"strings"

	"github.com/concierge/backend/internal/application/tariff/dto"
	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SourceAdmin labels overrides written through the single-rate admin path
const SourceAdmin = "admin"

// RateService handles rate resolution, single-rate administrative writes,
// and dutiable-base valuation.
type RateService struct {
	services  tariff.ServiceRepository
	overrides tariff.OverrideRepository
	countries tariff.CountryReference
	minimums  tariff.MinimumValuationSource
	cache     tariff.RateCache
	resolver  *tariff.Resolver
	logger    *zap.Logger
}

// NewRateService creates a new rate service. The cache may be nil.
func NewRateService(
	services tariff.ServiceRepository,
	overrides tariff.OverrideRepository,
	countries tariff.CountryReference,
	minimums tariff.MinimumValuationSource,
	cache tariff.RateCache,
	resolver *tariff.Resolver,
	logger *zap.Logger,
) *RateService {
	return &RateService{
		services:  services,
		overrides: overrides,
		countries: countries,
		minimums:  minimums,
		cache:     cache,
		resolver:  resolver,
		logger:    logger,
	}
}

// ResolveRate walks the precedence chain for a (service, country,
// classification) tuple and returns the most specific applicable rate.
func (s *RateService) ResolveRate(ctx context.Context, serviceKey, countryCode, classificationCode string) (*dto.ResolutionResponse, error) {
	service, err := s.findService(ctx, serviceKey)
	if err != nil {
		return nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, service.ID, countryCode, classificationCode)
	if err != nil {
		return nil, err
	}

	return &dto.ResolutionResponse{
		ServiceKey:         service.Key,
		CountryCode:        strings.ToUpper(countryCode),
		ClassificationCode: classificationCode,
		Rate:               resolution.Rate.Rate,
		Tier:               string(resolution.Rate.Tier),
		Source:             resolution.Rate.Source,
		Cached:             resolution.Cached,
	}, nil
}

// SetRate writes a single rate override. The previous active override for
// the exact scope is deactivated in the same transaction, then every cache
// entry the scope could influence is invalidated. Invalidation failures are
// logged and swallowed; a rate write never blocks on cache success.
func (s *RateService) SetRate(ctx context.Context, serviceKey string, req dto.SetRateRequest) (*dto.RateOverrideResponse, error) {
	service, err := s.findService(ctx, serviceKey)
	if err != nil {
		return nil, err
	}

	scope, err := req.Scope.ToDomain()
	if err != nil {
		return nil, err
	}
	if err := scope.Validate(s.countries); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = SourceAdmin
	}

	override, err := tariff.NewRateOverride(service.ID, scope, req.Rate, source, req.Reason)
	if err != nil {
		return nil, err
	}
	if err := override.SetBounds(req.MinAmount, req.MaxAmount); err != nil {
		return nil, err
	}

	if err := s.overrides.Upsert(ctx, override); err != nil {
		s.logger.Error("Failed to upsert rate override",
			zap.String("service", service.Key),
			zap.String("scope", scope.Key()),
			zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, tariff.InvalidationTags(service.ID, scope))

	s.logger.Info("Rate override written",
		zap.String("service", service.Key),
		zap.String("scope", scope.Key()),
		zap.String("rate", req.Rate.String()))

	return dto.ToRateOverrideResponse(service.Key, override), nil
}

// ComputeDutiableBase computes the value a percentage duty applies to,
// looking up the configured minimum valuation for the (classification,
// country) when one is addressable.
func (s *RateService) ComputeDutiableBase(ctx context.Context, req dto.ValuationRequest) (*dto.ValuationResponse, error) {
	policy, err := tariff.ParseValuationPolicy(req.Policy)
	if err != nil {
		return nil, err
	}

	var configured *decimal.Decimal
	if req.ClassificationCode != "" && req.CountryCode != "" {
		amount, err := s.minimums.MinimumValuation(ctx, req.ClassificationCode, strings.ToUpper(req.CountryCode))
		if err != nil {
			return nil, err
		}
		if amount != nil {
			configured = amount
		}
	}

	result, err := tariff.ComputeDutiableBase(req.DeclaredValue, configured, policy)
	if err != nil {
		return nil, err
	}

	if result.Warning != "" {
		s.logger.Warn("Valuation fell back to declared value",
			zap.String("warning", result.Warning),
			zap.String("classification", req.ClassificationCode),
			zap.String("country", req.CountryCode))
	}

	return &dto.ValuationResponse{
		Base:             result.Base,
		Policy:           string(result.Policy),
		Warning:          result.Warning,
		MinimumValuation: configured,
	}, nil
}

// RateMatrix returns the effective country-level rate overview for one
// service: every active country-scope override plus the fallback tiers the
// remaining countries resolve to is the caller's concern; this lists the
// explicit per-country rows.
func (s *RateService) RateMatrix(ctx context.Context, serviceKey string) (*dto.RateMatrixResponse, error) {
	service, err := s.findService(ctx, serviceKey)
	if err != nil {
		return nil, err
	}

	overrides, err := s.overrides.FindActiveCountryRates(ctx, service.ID)
	if err != nil {
		return nil, err
	}

	rows := make([]dto.CountryRateRow, 0, len(overrides))
	for i := range overrides {
		o := &overrides[i]
		rows = append(rows, dto.CountryRateRow{
			CountryCode: o.Scope.CountryCode,
			Rate:        o.Rate,
			Tier:        string(o.TierLabel),
			Source:      o.SourceLabel,
		})
	}

	return &dto.RateMatrixResponse{ServiceKey: service.Key, Rows: rows}, nil
}

// RateHistory returns all override rows, active and superseded, for one scope
func (s *RateService) RateHistory(ctx context.Context, serviceKey string, scopeDTO dto.ScopeDTO, filter shared.Filter) ([]*dto.RateOverrideResponse, error) {
	service, err := s.findService(ctx, serviceKey)
	if err != nil {
		return nil, err
	}

	scope, err := scopeDTO.ToDomain()
	if err != nil {
		return nil, err
	}

	history, err := s.overrides.HistoryByScope(ctx, service.ID, scope, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.RateOverrideResponse, 0, len(history))
	for i := range history {
		out = append(out, dto.ToRateOverrideResponse(service.Key, &history[i]))
	}
	return out, nil
}

// InvalidateCache flushes every cached resolution
func (s *RateService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Error("Cache flush failed", zap.Error(err))
		return shared.ErrStoreUnavailable
	}
	s.logger.Info("Calculation cache flushed")
	return nil
}

func (s *RateService) findService(ctx context.Context, key string) (*tariff.Service, error) {
	service, err := s.services.FindByKey(ctx, strings.ToLower(strings.TrimSpace(key)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SERVICE_NOT_FOUND", "Service not found")
		}
		return nil, err
	}
	return service, nil
}

func (s *RateService) invalidate(ctx context.Context, tags []string) {
	if s.cache == nil || len(tags) == 0 {
		return
	}
	if err := s.cache.InvalidateTags(ctx, tags...); err != nil {
		// Stale-but-safe: a miss recomputes from the store, so a rate
		// write must never fail on invalidation.
		s.logger.Warn("Cache invalidation failed",
			zap.Strings("tags", tags),
			zap.Error(err))
	}
}
