package persistence

import (
	"context"
	"errors"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceSortFields contains allowed sort fields for services
var ServiceSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"key":        true,
	"name":       true,
}

// GormServiceRepository implements tariff.ServiceRepository using GORM
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GormServiceRepository
func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormServiceRepository) WithTx(tx *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: tx}
}

// Create creates a new service
func (r *GormServiceRepository) Create(ctx context.Context, service *tariff.Service) error {
	model := models.ServiceModelFromDomain(service)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("SERVICE_KEY_EXISTS", "Service with this key already exists")
	}
	return nil
}

// Update updates a service's display metadata with optimistic locking.
// The key is immutable once the service is in use.
func (r *GormServiceRepository) Update(ctx context.Context, service *tariff.Service) error {
	model := models.ServiceModelFromDomain(service)

	result := r.db.WithContext(ctx).
		Model(&models.ServiceModel{}).
		Where("id = ? AND version = ?", service.ID, service.Version-1).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.ServiceModel{}).Where("id = ?", service.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a service by its ID
func (r *GormServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*tariff.Service, error) {
	var model models.ServiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByKey finds a service by its unique key
func (r *GormServiceRepository) FindByKey(ctx context.Context, key string) (*tariff.Service, error) {
	var model models.ServiceModel
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll retrieves all services with optional filtering
func (r *GormServiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tariff.Service, error) {
	var serviceModels []models.ServiceModel

	query := r.db.WithContext(ctx).Model(&models.ServiceModel{})

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("key ILIKE ? OR name ILIKE ?", search, search)
	}

	if filter.Paginated() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, ServiceSortFields, "")
		if sortField != "" {
			query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
		} else {
			query = query.Order("key ASC")
		}
	} else {
		query = query.Order("key ASC")
	}

	if err := query.Find(&serviceModels).Error; err != nil {
		return nil, err
	}

	services := make([]tariff.Service, len(serviceModels))
	for i := range serviceModels {
		services[i] = *serviceModels[i].ToDomain()
	}
	return services, nil
}

// Ensure GormServiceRepository implements ServiceRepository
var _ tariff.ServiceRepository = (*GormServiceRepository)(nil)
