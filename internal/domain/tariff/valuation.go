package tariff

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ValuationPolicy selects how the dutiable base of a shipment is computed
type ValuationPolicy string

const (
	// PolicyProductValue uses the declared value as-is
	PolicyProductValue ValuationPolicy = "product_value"
	// PolicyMinimumValuation uses the configured minimum valuation,
	// falling back to the declared value when none is configured
	PolicyMinimumValuation ValuationPolicy = "minimum_valuation"
	// PolicyHigherOfBoth uses whichever of the two is larger
	PolicyHigherOfBoth ValuationPolicy = "higher_of_both"
)

// ParseValuationPolicy converts a string to a ValuationPolicy
func ParseValuationPolicy(raw string) (ValuationPolicy, error) {
	switch ValuationPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyProductValue:
		return PolicyProductValue, nil
	case PolicyMinimumValuation:
		return PolicyMinimumValuation, nil
	case PolicyHigherOfBoth:
		return PolicyHigherOfBoth, nil
	default:
		return "", ErrInvalidValuationInput
	}
}

// ValuationResult is the computed dutiable base plus any non-fatal warning
type ValuationResult struct {
	Base    decimal.Decimal `json:"base"`
	Policy  ValuationPolicy `json:"policy"`
	Warning string          `json:"warning,omitempty"`
}

// ComputeDutiableBase computes the value against which a duty rate is
// applied. minimum is the administratively configured minimum valuation for
// the (classification, country), nil when none is configured.
//
// A missing minimum under PolicyMinimumValuation is a warning, not a
// failure: customs authorities require some value, so the declared value is
// used and the result carries WarningMinimumValuationMissing.
func ComputeDutiableBase(declared decimal.Decimal, minimum *decimal.Decimal, policy ValuationPolicy) (ValuationResult, error) {
	if declared.IsNegative() {
		return ValuationResult{}, ErrInvalidValuationInput
	}
	if minimum != nil && minimum.IsNegative() {
		return ValuationResult{}, ErrInvalidValuationInput
	}

	switch policy {
	case PolicyProductValue:
		return ValuationResult{Base: declared, Policy: policy}, nil

	case PolicyMinimumValuation:
		if minimum == nil {
			return ValuationResult{
				Base:    declared,
				Policy:  policy,
				Warning: WarningMinimumValuationMissing,
			}, nil
		}
		return ValuationResult{Base: *minimum, Policy: policy}, nil

	case PolicyHigherOfBoth:
		base := declared
		if minimum != nil && minimum.GreaterThan(base) {
			base = *minimum
		}
		return ValuationResult{Base: base, Policy: policy}, nil

	default:
		return ValuationResult{}, ErrInvalidValuationInput
	}
}
