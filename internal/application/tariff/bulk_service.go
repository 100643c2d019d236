package tariff

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/concierge/backend/internal/application/tariff/dto"
	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SourceBulk labels overrides written by the bulk processor
const SourceBulk = "bulk_operation"

// defaultBulkParallelism bounds the per-country write fan-out
const defaultBulkParallelism = 8

// BulkService applies one rate delta across many countries with
// per-country failure isolation, and previews revenue impact.
//
// There is deliberately no cross-country transaction: bulk price edits are
// independent per market. One country's failure never aborts or rolls back
// another country's write.
type BulkService struct {
	services    tariff.ServiceRepository
	overrides   tariff.OverrideRepository
	countries   tariff.CountryReference
	cache       tariff.RateCache
	resolver    *tariff.Resolver
	volume      tariff.VolumeSource
	logger      *zap.Logger
	parallelism int
}

// BulkServiceOption is a functional option for configuring the bulk service
type BulkServiceOption func(*BulkService)

// WithBulkParallelism bounds the number of concurrent per-country writes
func WithBulkParallelism(n int) BulkServiceOption {
	return func(s *BulkService) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// NewBulkService creates a new bulk operation service
func NewBulkService(
	services tariff.ServiceRepository,
	overrides tariff.OverrideRepository,
	countries tariff.CountryReference,
	cache tariff.RateCache,
	resolver *tariff.Resolver,
	volume tariff.VolumeSource,
	logger *zap.Logger,
	opts ...BulkServiceOption,
) *BulkService {
	s := &BulkService{
		services:    services,
		overrides:   overrides,
		countries:   countries,
		cache:       cache,
		resolver:    resolver,
		volume:      volume,
		logger:      logger,
		parallelism: defaultBulkParallelism,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ApplyBulkOperation applies the requested delta to every listed country
// independently, then issues one cache-invalidation pass covering the union
// of affected countries plus the rate-matrix cache.
func (s *BulkService) ApplyBulkOperation(ctx context.Context, serviceKey string, req dto.BulkOperationRequest) (*dto.BulkOperationResponse, error) {
	opType, err := tariff.ParseBulkOperationType(req.Operation)
	if err != nil {
		return nil, err
	}
	op := tariff.BulkOperation{Type: opType, Value: req.Value}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if len(req.Countries) == 0 {
		return nil, shared.NewDomainError("EMPTY_COUNTRY_LIST", "Bulk operation requires at least one country")
	}

	service, err := s.findService(ctx, serviceKey)
	if err != nil {
		return nil, err
	}

	result := tariff.NewBulkOperationResult(service.ID, op)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for _, raw := range req.Countries {
		code := strings.ToUpper(strings.TrimSpace(raw))
		g.Go(func() error {
			outcome := s.applyToCountry(gctx, service, op, code, req.Reason)
			mu.Lock()
			result.Record(outcome)
			mu.Unlock()
			// Per-country failures are data, not errors; never cancel
			// the sibling writes.
			return nil
		})
	}
	_ = g.Wait()

	s.invalidateAffected(ctx, service.ID, result)

	s.logger.Info("Bulk rate operation completed",
		zap.String("service", service.Key),
		zap.String("operation", string(op.Type)),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return dto.ToBulkOperationResponse(service.Key, result), nil
}

// applyToCountry performs the resolve-compute-write sequence for one country
func (s *BulkService) applyToCountry(ctx context.Context, service *tariff.Service, op tariff.BulkOperation, code, reason string) tariff.CountryResult {
	if !s.countries.HasCountry(code) {
		return tariff.CountryResult{
			CountryCode: code,
			Status:      tariff.CountryResultFailed,
			ErrorCode:   "INVALID_SCOPE",
			Message:     "unknown country code",
		}
	}

	var previous *decimal.Decimal
	current := decimal.Zero

	if op.RequiresCurrentRate() {
		resolution, err := s.resolver.Resolve(ctx, service.ID, code, "")
		if err != nil {
			if errors.Is(err, tariff.ErrNoRateConfigured) {
				// No base rate to apply a relative change to; skip,
				// don't fail.
				return tariff.CountryResult{
					CountryCode: code,
					Status:      tariff.CountryResultSkipped,
					Message:     "no current rate to base the change on",
				}
			}
			return tariff.CountryResult{
				CountryCode: code,
				Status:      tariff.CountryResultFailed,
				ErrorCode:   errorCode(err),
				Message:     err.Error(),
			}
		}
		current = resolution.Rate.Rate
		previous = &current
	}

	newRate := op.Apply(current)

	override, err := tariff.NewRateOverride(service.ID, tariff.CountryScope(code), newRate, SourceBulk, reason)
	if err != nil {
		return tariff.CountryResult{
			CountryCode: code,
			Status:      tariff.CountryResultFailed,
			ErrorCode:   errorCode(err),
			Message:     err.Error(),
		}
	}

	if err := s.overrides.Upsert(ctx, override); err != nil {
		s.logger.Error("Bulk write failed for country",
			zap.String("service", service.Key),
			zap.String("country", code),
			zap.Error(err))
		return tariff.CountryResult{
			CountryCode: code,
			Status:      tariff.CountryResultFailed,
			ErrorCode:   errorCode(err),
			Message:     err.Error(),
		}
	}

	return tariff.CountryResult{
		CountryCode:  code,
		Status:       tariff.CountryResultUpdated,
		PreviousRate: previous,
		NewRate:      &newRate,
	}
}

// EstimateImpact projects the revenue delta of a proposed change. Advisory
// only: it never blocks or alters a bulk operation's execution.
func (s *BulkService) EstimateImpact(ctx context.Context, serviceKey string, req dto.ImpactRequest) (*tariff.ImpactEstimate, error) {
	if _, err := s.findService(ctx, serviceKey); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(req.Countries))
	for _, raw := range req.Countries {
		codes = append(codes, strings.ToUpper(strings.TrimSpace(raw)))
	}

	orderCount, avgOrderValue, err := s.volume.VolumeFor(ctx, codes)
	if err != nil {
		return nil, err
	}

	return tariff.EstimateRevenueImpact(
		req.CurrentRate,
		req.NewRate,
		codes,
		orderCount,
		avgOrderValue,
		s.countries.CountryCount(),
	)
}

// invalidateAffected issues one best-effort invalidation pass for the
// union of updated countries plus the rate-matrix cache.
func (s *BulkService) invalidateAffected(ctx context.Context, serviceID uuid.UUID, result *tariff.BulkOperationResult) {
	if s.cache == nil {
		return
	}
	updated := result.UpdatedCountries()
	if len(updated) == 0 {
		return
	}

	tags := make([]string, 0, len(updated)+1)
	for _, code := range updated {
		tags = append(tags, tariff.CountryTag(code))
	}
	tags = append(tags, tariff.MatrixTag(serviceID))

	if err := s.cache.InvalidateTags(ctx, tags...); err != nil {
		s.logger.Warn("Bulk cache invalidation failed",
			zap.Int("countries", len(updated)),
			zap.Error(err))
	}
}

func (s *BulkService) findService(ctx context.Context, key string) (*tariff.Service, error) {
	service, err := s.services.FindByKey(ctx, strings.ToLower(strings.TrimSpace(key)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SERVICE_NOT_FOUND", "Service not found")
		}
		return nil, err
	}
	return service, nil
}

// errorCode extracts the domain error code for per-country reporting
func errorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "INTERNAL_ERROR"
}
