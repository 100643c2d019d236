// Package dto defines the application-layer request and response shapes for
// the tariff engine.
package dto

import (
	"time"

	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScopeDTO is the wire form of a rate override scope
type ScopeDTO struct {
	Kind               string `json:"kind"`
	Continent          string `json:"continent,omitempty"`
	Region             string `json:"region,omitempty"`
	CountryCode        string `json:"country_code,omitempty"`
	ClassificationCode string `json:"classification_code,omitempty"`
}

// ToDomain converts the DTO to a domain Scope
func (d ScopeDTO) ToDomain() (tariff.Scope, error) {
	kind, err := tariff.ParseScopeKind(d.Kind)
	if err != nil {
		return tariff.Scope{}, err
	}
	switch kind {
	case tariff.ScopeKindGlobal:
		return tariff.GlobalScope(), nil
	case tariff.ScopeKindContinent:
		return tariff.ContinentScope(d.Continent), nil
	case tariff.ScopeKindRegion:
		return tariff.RegionScope(d.Region), nil
	case tariff.ScopeKindCountry:
		return tariff.CountryScope(d.CountryCode), nil
	case tariff.ScopeKindProduct:
		return tariff.ProductScope(d.ClassificationCode, d.CountryCode), nil
	default:
		return tariff.Scope{}, tariff.ErrInvalidScope
	}
}

// FromDomainScope converts a domain Scope to its wire form
func FromDomainScope(s tariff.Scope) ScopeDTO {
	return ScopeDTO{
		Kind:               string(s.Kind),
		Continent:          s.Continent,
		Region:             s.Region,
		CountryCode:        s.CountryCode,
		ClassificationCode: s.ClassificationCode,
	}
}

// SetRateRequest carries one administrative rate write
type SetRateRequest struct {
	Scope     ScopeDTO         `json:"scope"`
	Rate      decimal.Decimal  `json:"rate"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	Reason    string           `json:"reason"`
	Source    string           `json:"source,omitempty"`
}

// RateOverrideResponse is the wire form of a persisted rate override
type RateOverrideResponse struct {
	ID            uuid.UUID        `json:"id"`
	ServiceKey    string           `json:"service_key"`
	Scope         ScopeDTO         `json:"scope"`
	Rate          decimal.Decimal  `json:"rate"`
	Tier          string           `json:"tier"`
	Source        string           `json:"source"`
	MinAmount     *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount     *decimal.Decimal `json:"max_amount,omitempty"`
	IsActive      bool             `json:"is_active"`
	EffectiveFrom time.Time        `json:"effective_from"`
	Reason        string           `json:"reason,omitempty"`
}

// ToRateOverrideResponse converts a domain override to its wire form
func ToRateOverrideResponse(serviceKey string, o *tariff.RateOverride) *RateOverrideResponse {
	return &RateOverrideResponse{
		ID:            o.ID,
		ServiceKey:    serviceKey,
		Scope:         FromDomainScope(o.Scope),
		Rate:          o.Rate,
		Tier:          string(o.TierLabel),
		Source:        o.SourceLabel,
		MinAmount:     o.MinAmount,
		MaxAmount:     o.MaxAmount,
		IsActive:      o.IsActive,
		EffectiveFrom: o.EffectiveFrom,
		Reason:        o.Reason,
	}
}

// ResolutionResponse is the outcome of one rate lookup
type ResolutionResponse struct {
	ServiceKey         string          `json:"service_key"`
	CountryCode        string          `json:"country_code"`
	ClassificationCode string          `json:"classification_code,omitempty"`
	Rate               decimal.Decimal `json:"rate"`
	Tier               string          `json:"tier"`
	Source             string          `json:"source"`
	Cached             bool            `json:"cached"`
}

// ValuationRequest asks for the dutiable base of one shipment line
type ValuationRequest struct {
	DeclaredValue      decimal.Decimal `json:"declared_value"`
	ClassificationCode string          `json:"classification_code,omitempty"`
	CountryCode        string          `json:"country_code,omitempty"`
	Policy             string          `json:"policy"`
}

// ValuationResponse is the computed dutiable base
type ValuationResponse struct {
	Base             decimal.Decimal  `json:"base"`
	Policy           string           `json:"policy"`
	Warning          string           `json:"warning,omitempty"`
	MinimumValuation *decimal.Decimal `json:"minimum_valuation,omitempty"`
}

// BulkOperationRequest applies one delta across many countries
type BulkOperationRequest struct {
	Operation string          `json:"operation"`
	Value     decimal.Decimal `json:"value"`
	Countries []string        `json:"countries"`
	Reason    string          `json:"reason,omitempty"`
}

// BulkOperationResponse is the per-country outcome of a bulk call
type BulkOperationResponse struct {
	ServiceKey string                 `json:"service_key"`
	Operation  string                 `json:"operation"`
	Value      decimal.Decimal        `json:"value"`
	Results    []tariff.CountryResult `json:"results"`
	Updated    int                    `json:"updated"`
	Skipped    int                    `json:"skipped"`
	Failed     int                    `json:"failed"`
}

// ToBulkOperationResponse converts a domain bulk result to its wire form
func ToBulkOperationResponse(serviceKey string, r *tariff.BulkOperationResult) *BulkOperationResponse {
	return &BulkOperationResponse{
		ServiceKey: serviceKey,
		Operation:  string(r.Operation.Type),
		Value:      r.Operation.Value,
		Results:    r.Results,
		Updated:    r.Updated,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
	}
}

// ImpactRequest asks for a revenue projection of a proposed rate change
type ImpactRequest struct {
	CurrentRate decimal.Decimal `json:"current_rate"`
	NewRate     decimal.Decimal `json:"new_rate"`
	Countries   []string        `json:"countries"`
}

// CountryRateRow is one row of the administrative rate matrix
type CountryRateRow struct {
	CountryCode string          `json:"country_code"`
	Rate        decimal.Decimal `json:"rate"`
	Tier        string          `json:"tier"`
	Source      string          `json:"source"`
}

// RateMatrixResponse is the per-country rate overview for one service
type RateMatrixResponse struct {
	ServiceKey string           `json:"service_key"`
	Rows       []CountryRateRow `json:"rows"`
}
