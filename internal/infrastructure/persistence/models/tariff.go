package models

import (
	"time"

	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceModel is the persistence model for the Service aggregate root
type ServiceModel struct {
	AggregateModel
	Key         string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string             `gorm:"type:varchar(200);not null"`
	Description string             `gorm:"type:text"`
	PricingType tariff.PricingType `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (ServiceModel) TableName() string {
	return "tariff_services"
}

// ToDomain converts the persistence model to a domain Service
func (m *ServiceModel) ToDomain() *tariff.Service {
	service := &tariff.Service{
		Key:         m.Key,
		Name:        m.Name,
		Description: m.Description,
		PricingType: m.PricingType,
	}
	m.PopulateAggregateRoot(&service.BaseAggregateRoot)
	return service
}

// ServiceModelFromDomain creates a persistence model from a domain Service
func ServiceModelFromDomain(s *tariff.Service) *ServiceModel {
	m := &ServiceModel{
		Key:         s.Key,
		Name:        s.Name,
		Description: s.Description,
		PricingType: s.PricingType,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}

// RateOverrideModel is the persistence model for the RateOverride aggregate.
// The scope is flattened into typed columns plus the derived scope_key, which
// backs both the one-active-per-slot constraint and the resolver's candidate
// lookup.
type RateOverrideModel struct {
	AggregateModel
	ServiceID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_rate_overrides_service_scope"`
	ScopeKind          tariff.ScopeKind `gorm:"type:varchar(20);not null"`
	ScopeKey           string           `gorm:"type:varchar(120);not null;index:idx_rate_overrides_service_scope"`
	Continent          string           `gorm:"type:varchar(40)"`
	Region             string           `gorm:"type:varchar(40)"`
	CountryCode        string           `gorm:"type:varchar(2)"`
	ClassificationCode string           `gorm:"type:varchar(20)"`
	Rate               decimal.Decimal  `gorm:"type:numeric(12,6);not null"`
	TierLabel          tariff.Tier      `gorm:"type:varchar(20);not null"`
	SourceLabel        string           `gorm:"type:varchar(50);not null"`
	MinAmount          *decimal.Decimal `gorm:"type:numeric(14,2)"`
	MaxAmount          *decimal.Decimal `gorm:"type:numeric(14,2)"`
	IsActive           bool             `gorm:"not null;index"`
	EffectiveFrom      time.Time        `gorm:"not null"`
	Reason             string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (RateOverrideModel) TableName() string {
	return "rate_overrides"
}

// ToDomain converts the persistence model to a domain RateOverride
func (m *RateOverrideModel) ToDomain() *tariff.RateOverride {
	override := &tariff.RateOverride{
		ServiceID: m.ServiceID,
		Scope: tariff.Scope{
			Kind:               m.ScopeKind,
			Continent:          m.Continent,
			Region:             m.Region,
			CountryCode:        m.CountryCode,
			ClassificationCode: m.ClassificationCode,
		},
		Rate:          m.Rate,
		TierLabel:     m.TierLabel,
		SourceLabel:   m.SourceLabel,
		MinAmount:     m.MinAmount,
		MaxAmount:     m.MaxAmount,
		IsActive:      m.IsActive,
		EffectiveFrom: m.EffectiveFrom,
		Reason:        m.Reason,
	}
	m.PopulateAggregateRoot(&override.BaseAggregateRoot)
	return override
}

// RateOverrideModelFromDomain creates a persistence model from a domain RateOverride
func RateOverrideModelFromDomain(o *tariff.RateOverride) *RateOverrideModel {
	m := &RateOverrideModel{
		ServiceID:          o.ServiceID,
		ScopeKind:          o.Scope.Kind,
		ScopeKey:           o.Scope.Key(),
		Continent:          o.Scope.Continent,
		Region:             o.Scope.Region,
		CountryCode:        o.Scope.CountryCode,
		ClassificationCode: o.Scope.ClassificationCode,
		Rate:               o.Rate,
		TierLabel:          o.TierLabel,
		SourceLabel:        o.SourceLabel,
		MinAmount:          o.MinAmount,
		MaxAmount:          o.MaxAmount,
		IsActive:           o.IsActive,
		EffectiveFrom:      o.EffectiveFrom,
		Reason:             o.Reason,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}

// MinimumValuationModel stores the configured minimum valuation amount per
// (classification, country). Maintained by catalog tooling; the engine only
// reads it.
type MinimumValuationModel struct {
	BaseModel
	ClassificationCode string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_min_valuations_class_country"`
	CountryCode        string          `gorm:"type:varchar(2);not null;uniqueIndex:idx_min_valuations_class_country"`
	Amount             decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

// TableName returns the table name for GORM
func (MinimumValuationModel) TableName() string {
	return "minimum_valuations"
}

// CountryStatsModel holds historical order statistics per country, used by
// revenue impact estimation.
type CountryStatsModel struct {
	BaseModel
	CountryCode   string          `gorm:"type:varchar(2);not null;uniqueIndex"`
	OrderCount    int64           `gorm:"not null;default:0"`
	AvgOrderValue decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (CountryStatsModel) TableName() string {
	return "country_stats"
}

// ToDomain converts the persistence model to a domain CountryVolume
func (m *CountryStatsModel) ToDomain() tariff.CountryVolume {
	return tariff.CountryVolume{
		CountryCode:   m.CountryCode,
		OrderCount:    m.OrderCount,
		AvgOrderValue: m.AvgOrderValue,
	}
}
