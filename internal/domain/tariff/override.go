package tariff

import (
	"time"

	"github.com/concierge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateOverride is a configured rate at one scope of the precedence chain.
// For a given (service, scope) at most one override is active; superseding
// an override deactivates the previous row rather than deleting it, so the
// full rate history is preserved.
type RateOverride struct {
	shared.BaseAggregateRoot
	ServiceID     uuid.UUID
	Scope         Scope
	Rate          decimal.Decimal
	TierLabel     Tier
	SourceLabel   string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	IsActive      bool
	EffectiveFrom time.Time
	Reason        string
}

// NewRateOverride creates an active rate override for the given scope.
// The rate must be non-negative.
func NewRateOverride(serviceID uuid.UUID, scope Scope, rate decimal.Decimal, source, reason string) (*RateOverride, error) {
	if serviceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Service ID is required")
	}
	if scope.Specificity() < 0 {
		return nil, ErrInvalidScope
	}
	if rate.IsNegative() {
		return nil, ErrInvalidRate
	}

	return &RateOverride{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ServiceID:         serviceID,
		Scope:             scope,
		Rate:              rate,
		TierLabel:         scope.Tier(),
		SourceLabel:       source,
		IsActive:          true,
		EffectiveFrom:     time.Now(),
		Reason:            reason,
	}, nil
}

// SetBounds sets the optional min/max amount clamps applied after the rate.
// When both are present min must not exceed max.
func (o *RateOverride) SetBounds(minAmount, maxAmount *decimal.Decimal) error {
	if minAmount != nil && minAmount.IsNegative() {
		return ErrInvalidRate
	}
	if maxAmount != nil && maxAmount.IsNegative() {
		return ErrInvalidRate
	}
	if minAmount != nil && maxAmount != nil && minAmount.GreaterThan(*maxAmount) {
		return ErrInvalidRate
	}
	o.MinAmount = minAmount
	o.MaxAmount = maxAmount
	return nil
}

// Deactivate marks the override as superseded. Rows are never deleted.
func (o *RateOverride) Deactivate() {
	if !o.IsActive {
		return
	}
	o.IsActive = false
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// ClampAmount applies the optional min/max bounds to a computed amount
func (o *RateOverride) ClampAmount(amount decimal.Decimal) decimal.Decimal {
	if o.MinAmount != nil && amount.LessThan(*o.MinAmount) {
		return *o.MinAmount
	}
	if o.MaxAmount != nil && amount.GreaterThan(*o.MaxAmount) {
		return *o.MaxAmount
	}
	return amount
}
