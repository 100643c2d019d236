package persistence

import (
	"context"

	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCountryStatsRepository implements tariff.VolumeSource from the
// country_stats table of historical order aggregates.
type GormCountryStatsRepository struct {
	db *gorm.DB
}

// NewGormCountryStatsRepository creates a new GormCountryStatsRepository
func NewGormCountryStatsRepository(db *gorm.DB) *GormCountryStatsRepository {
	return &GormCountryStatsRepository{db: db}
}

// VolumeFor returns the aggregate order count and the volume-weighted
// average order value across the given countries. Countries with no stats
// row contribute zero volume.
func (r *GormCountryStatsRepository) VolumeFor(ctx context.Context, countryCodes []string) (int64, decimal.Decimal, error) {
	if len(countryCodes) == 0 {
		return 0, decimal.Zero, nil
	}

	var rows []models.CountryStatsModel
	err := r.db.WithContext(ctx).
		Where("country_code IN ?", countryCodes).
		Find(&rows).Error
	if err != nil {
		return 0, decimal.Zero, err
	}

	var totalOrders int64
	totalValue := decimal.Zero
	for i := range rows {
		totalOrders += rows[i].OrderCount
		totalValue = totalValue.Add(rows[i].AvgOrderValue.Mul(decimal.NewFromInt(rows[i].OrderCount)))
	}

	if totalOrders == 0 {
		return 0, decimal.Zero, nil
	}
	return totalOrders, totalValue.Div(decimal.NewFromInt(totalOrders)), nil
}

// Ensure GormCountryStatsRepository implements VolumeSource
var _ tariff.VolumeSource = (*GormCountryStatsRepository)(nil)
