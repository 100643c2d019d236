package persistence

import (
	"context"
	"errors"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RateOverrideSortFields contains allowed sort fields for rate overrides
var RateOverrideSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"effective_from": true,
	"rate":           true,
	"scope_key":      true,
}

// GormRateOverrideRepository implements tariff.OverrideRepository using GORM
type GormRateOverrideRepository struct {
	db *gorm.DB
}

// NewGormRateOverrideRepository creates a new GormRateOverrideRepository
func NewGormRateOverrideRepository(db *gorm.DB) *GormRateOverrideRepository {
	return &GormRateOverrideRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormRateOverrideRepository) WithTx(tx *gorm.DB) *GormRateOverrideRepository {
	return &GormRateOverrideRepository{db: tx}
}

// Upsert deactivates the current active override for the (service, scope)
// slot and inserts the new row in one transaction. Readers see either the
// previous active row or the new one, never both; superseded rows are kept
// as history.
func (r *GormRateOverrideRepository) Upsert(ctx context.Context, override *tariff.RateOverride) error {
	model := models.RateOverrideModelFromDomain(override)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RateOverrideModel{}).
			Where("service_id = ? AND scope_key = ? AND is_active = ?", model.ServiceID, model.ScopeKey, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

// FindActiveByScope returns the single active override for an exact scope
func (r *GormRateOverrideRepository) FindActiveByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope) (*tariff.RateOverride, error) {
	var model models.RateOverrideModel
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND scope_key = ? AND is_active = ?", serviceID, scope.Key(), true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByScopeKeys returns all active overrides whose scope key is in
// the candidate set. One query serves the whole precedence chain of a lookup.
func (r *GormRateOverrideRepository) FindActiveByScopeKeys(ctx context.Context, serviceID uuid.UUID, scopeKeys []string) ([]tariff.RateOverride, error) {
	if len(scopeKeys) == 0 {
		return []tariff.RateOverride{}, nil
	}

	var overrideModels []models.RateOverrideModel
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND scope_key IN ? AND is_active = ?", serviceID, scopeKeys, true).
		Find(&overrideModels).Error
	if err != nil {
		return nil, err
	}

	overrides := make([]tariff.RateOverride, len(overrideModels))
	for i := range overrideModels {
		overrides[i] = *overrideModels[i].ToDomain()
	}
	return overrides, nil
}

// FindActiveCountryRates returns every active country-scope override for a
// service, ordered by country code for stable matrix output.
func (r *GormRateOverrideRepository) FindActiveCountryRates(ctx context.Context, serviceID uuid.UUID) ([]tariff.RateOverride, error) {
	var overrideModels []models.RateOverrideModel
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND scope_kind = ? AND is_active = ?", serviceID, tariff.ScopeKindCountry, true).
		Order("country_code ASC").
		Find(&overrideModels).Error
	if err != nil {
		return nil, err
	}

	overrides := make([]tariff.RateOverride, len(overrideModels))
	for i := range overrideModels {
		overrides[i] = *overrideModels[i].ToDomain()
	}
	return overrides, nil
}

// HistoryByScope returns all rows for one scope, active and superseded,
// newest first.
func (r *GormRateOverrideRepository) HistoryByScope(ctx context.Context, serviceID uuid.UUID, scope tariff.Scope, filter shared.Filter) ([]tariff.RateOverride, error) {
	var overrideModels []models.RateOverrideModel

	query := r.db.WithContext(ctx).Model(&models.RateOverrideModel{}).
		Where("service_id = ? AND scope_key = ?", serviceID, scope.Key())
	query = r.applyFilter(query, filter)

	if err := query.Find(&overrideModels).Error; err != nil {
		return nil, err
	}

	overrides := make([]tariff.RateOverride, len(overrideModels))
	for i := range overrideModels {
		overrides[i] = *overrideModels[i].ToDomain()
	}
	return overrides, nil
}

// applyFilter applies pagination and ordering to the query
func (r *GormRateOverrideRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Paginated() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, RateOverrideSortFields, "")
		if sortField != "" {
			sortOrder := ValidateSortOrder(filter.OrderDir)
			query = query.Order(sortField + " " + sortOrder)
		} else {
			query = query.Order("effective_from DESC")
		}
	} else {
		query = query.Order("effective_from DESC")
	}

	return query
}

// Ensure GormRateOverrideRepository implements OverrideRepository
var _ tariff.OverrideRepository = (*GormRateOverrideRepository)(nil)
