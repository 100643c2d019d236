package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMinimumValuationRepository implements tariff.MinimumValuationSource
// using GORM. The engine only reads this table; catalog maintenance owns
// writes.
type GormMinimumValuationRepository struct {
	db *gorm.DB
}

// NewGormMinimumValuationRepository creates a new GormMinimumValuationRepository
func NewGormMinimumValuationRepository(db *gorm.DB) *GormMinimumValuationRepository {
	return &GormMinimumValuationRepository{db: db}
}

// MinimumValuation returns the configured minimum amount for a
// (classification, country), or nil when none is configured.
func (r *GormMinimumValuationRepository) MinimumValuation(ctx context.Context, classificationCode, countryCode string) (*decimal.Decimal, error) {
	var model models.MinimumValuationModel
	err := r.db.WithContext(ctx).
		Where("classification_code = ? AND country_code = ?", classificationCode, strings.ToUpper(countryCode)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Amount, nil
}

// Ensure GormMinimumValuationRepository implements MinimumValuationSource
var _ tariff.MinimumValuationSource = (*GormMinimumValuationRepository)(nil)
