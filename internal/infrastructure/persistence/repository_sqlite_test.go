package persistence

import (
	"context"
	"testing"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSqliteTestDB opens an in-memory database with the full schema, for
// tests that need real transactional behavior instead of sqlmock.
func newSqliteTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.ServiceModel{},
		&models.RateOverrideModel{},
		&models.MinimumValuationModel{},
		&models.CountryStatsModel{},
	))

	return db
}

func mustNewService(t *testing.T, key string) *tariff.Service {
	t.Helper()
	service, err := tariff.NewService(key, "Customs Duty", tariff.PricingTypePercentage)
	require.NoError(t, err)
	return service
}

func mustNewOverride(t *testing.T, serviceID uuid.UUID, scope tariff.Scope, rate string) *tariff.RateOverride {
	t.Helper()
	o, err := tariff.NewRateOverride(serviceID, scope, decimal.RequireFromString(rate), "admin", "test")
	require.NoError(t, err)
	return o
}

func TestGormServiceRepository_CreateAndFind(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormServiceRepository(db)
	ctx := context.Background()

	service := mustNewService(t, "customs_duty")
	require.NoError(t, repo.Create(ctx, service))

	t.Run("find by key", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, "customs_duty")
		require.NoError(t, err)
		assert.Equal(t, service.ID, found.ID)
		assert.Equal(t, tariff.PricingTypePercentage, found.PricingType)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, service.ID)
		require.NoError(t, err)
		assert.Equal(t, "customs_duty", found.Key)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, "ghost")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate key is rejected", func(t *testing.T) {
		dup := mustNewService(t, "customs_duty")
		err := repo.Create(ctx, dup)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SERVICE_KEY_EXISTS", domainErr.Code)
	})
}

func TestGormServiceRepository_OptimisticLocking(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormServiceRepository(db)
	ctx := context.Background()

	service := mustNewService(t, "handling_fee")
	require.NoError(t, repo.Create(ctx, service))

	require.NoError(t, service.UpdateDisplay("Handling Fee", "Per-shipment handling"))
	require.NoError(t, repo.Update(ctx, service))

	t.Run("stale version conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, service.ID)
		require.NoError(t, err)
		stale.Version = 1 // behind the stored row

		require.NoError(t, stale.UpdateDisplay("Handling Fee", "Outdated edit"))
		err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("missing service", func(t *testing.T) {
		gone := mustNewService(t, "never_saved")
		require.NoError(t, gone.UpdateDisplay("Nope", ""))
		err := repo.Update(ctx, gone)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormRateOverrideRepository_UpsertSupersession(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormRateOverrideRepository(db)
	ctx := context.Background()

	serviceID := uuid.New()
	scope := tariff.CountryScope("IN")

	first := mustNewOverride(t, serviceID, scope, "0.15")
	require.NoError(t, repo.Upsert(ctx, first))

	second := mustNewOverride(t, serviceID, scope, "0.18")
	require.NoError(t, repo.Upsert(ctx, second))

	t.Run("only the newest override is active", func(t *testing.T) {
		active, err := repo.FindActiveByScope(ctx, serviceID, scope)
		require.NoError(t, err)
		assert.True(t, active.Rate.Equal(decimal.RequireFromString("0.18")))

		var activeCount int64
		require.NoError(t, db.Model(&models.RateOverrideModel{}).
			Where("service_id = ? AND scope_key = ? AND is_active = ?", serviceID, scope.Key(), true).
			Count(&activeCount).Error)
		assert.Equal(t, int64(1), activeCount)
	})

	t.Run("superseded row survives as history", func(t *testing.T) {
		history, err := repo.HistoryByScope(ctx, serviceID, scope, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.True(t, history[0].IsActive)
		assert.True(t, history[0].Rate.Equal(decimal.RequireFromString("0.18")))
		assert.False(t, history[1].IsActive)
		assert.True(t, history[1].Rate.Equal(decimal.RequireFromString("0.15")))
	})

	t.Run("other slots are untouched", func(t *testing.T) {
		other := mustNewOverride(t, serviceID, tariff.CountryScope("DE"), "0.19")
		require.NoError(t, repo.Upsert(ctx, other))

		active, err := repo.FindActiveByScope(ctx, serviceID, scope)
		require.NoError(t, err)
		assert.True(t, active.Rate.Equal(decimal.RequireFromString("0.18")))
	})
}

func TestGormRateOverrideRepository_Lookups(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormRateOverrideRepository(db)
	ctx := context.Background()

	serviceID := uuid.New()
	require.NoError(t, repo.Upsert(ctx, mustNewOverride(t, serviceID, tariff.GlobalScope(), "0.05")))
	require.NoError(t, repo.Upsert(ctx, mustNewOverride(t, serviceID, tariff.CountryScope("IN"), "0.18")))
	require.NoError(t, repo.Upsert(ctx, mustNewOverride(t, serviceID, tariff.CountryScope("DE"), "0.19")))
	require.NoError(t, repo.Upsert(ctx, mustNewOverride(t, serviceID, tariff.RegionScope("eu"), "0.10")))

	t.Run("find active by scope keys", func(t *testing.T) {
		keys := []string{tariff.GlobalScope().Key(), tariff.CountryScope("IN").Key()}
		overrides, err := repo.FindActiveByScopeKeys(ctx, serviceID, keys)
		require.NoError(t, err)
		assert.Len(t, overrides, 2)
	})

	t.Run("empty key set short-circuits", func(t *testing.T) {
		overrides, err := repo.FindActiveByScopeKeys(ctx, serviceID, nil)
		require.NoError(t, err)
		assert.Empty(t, overrides)
	})

	t.Run("country rates ordered by code", func(t *testing.T) {
		rates, err := repo.FindActiveCountryRates(ctx, serviceID)
		require.NoError(t, err)
		require.Len(t, rates, 2)
		assert.Equal(t, "DE", rates[0].Scope.CountryCode)
		assert.Equal(t, "IN", rates[1].Scope.CountryCode)
	})

	t.Run("missing scope", func(t *testing.T) {
		_, err := repo.FindActiveByScope(ctx, serviceID, tariff.CountryScope("BR"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormMinimumValuationRepository_Lookup(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormMinimumValuationRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.MinimumValuationModel{
		BaseModel:          models.BaseModel{ID: uuid.New()},
		ClassificationCode: "6109",
		CountryCode:        "IN",
		Amount:             decimal.RequireFromString("1200"),
	}).Error)

	t.Run("configured minimum", func(t *testing.T) {
		amount, err := repo.MinimumValuation(ctx, "6109", "in")
		require.NoError(t, err)
		require.NotNil(t, amount)
		assert.True(t, amount.Equal(decimal.RequireFromString("1200")))
	})

	t.Run("unconfigured pair returns nil without error", func(t *testing.T) {
		amount, err := repo.MinimumValuation(ctx, "6109", "DE")
		require.NoError(t, err)
		assert.Nil(t, amount)
	})
}

func TestGormCountryStatsRepository_VolumeFor(t *testing.T) {
	db := newSqliteTestDB(t)
	repo := NewGormCountryStatsRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CountryStatsModel{
		BaseModel:     models.BaseModel{ID: uuid.New()},
		CountryCode:   "IN",
		OrderCount:    300,
		AvgOrderValue: decimal.RequireFromString("40"),
	}).Error)
	require.NoError(t, db.Create(&models.CountryStatsModel{
		BaseModel:     models.BaseModel{ID: uuid.New()},
		CountryCode:   "DE",
		OrderCount:    100,
		AvgOrderValue: decimal.RequireFromString("80"),
	}).Error)

	t.Run("weighted average across countries", func(t *testing.T) {
		orders, avg, err := repo.VolumeFor(ctx, []string{"IN", "DE"})
		require.NoError(t, err)
		assert.Equal(t, int64(400), orders)
		// (300*40 + 100*80) / 400 = 50
		assert.True(t, avg.Equal(decimal.RequireFromString("50")))
	})

	t.Run("unknown countries contribute nothing", func(t *testing.T) {
		orders, avg, err := repo.VolumeFor(ctx, []string{"BR"})
		require.NoError(t, err)
		assert.Zero(t, orders)
		assert.True(t, avg.IsZero())
	})

	t.Run("empty list", func(t *testing.T) {
		orders, avg, err := repo.VolumeFor(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, orders)
		assert.True(t, avg.IsZero())
	})
}
