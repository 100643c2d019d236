package tariff

import "github.com/concierge/backend/internal/domain/shared"

// Domain errors for the duty & fee resolution engine
var (
	// ErrNoRateConfigured is returned when resolution exhausted all scope tiers.
	// It is fatal to the calling quote and must never be defaulted to zero.
	ErrNoRateConfigured = shared.NewDomainError("NO_RATE_CONFIGURED", "No rate configured for service at any scope")

	// ErrInvalidScope is returned when a scope references an unknown country,
	// region or continent, or is structurally malformed.
	ErrInvalidScope = shared.NewDomainError("INVALID_SCOPE", "Scope references an unknown country, region or continent")

	// ErrInvalidRate is returned for negative rates or inconsistent amount bounds.
	ErrInvalidRate = shared.NewDomainError("INVALID_RATE", "Rate must be non-negative and bounds consistent")

	// ErrInvalidValuationInput is returned for negative declared or minimum values.
	ErrInvalidValuationInput = shared.NewDomainError("INVALID_VALUATION_INPUT", "Valuation inputs must be non-negative")
)

// WarningMinimumValuationMissing accompanies a valuation result that fell back
// to the declared value because no minimum valuation is configured.
const WarningMinimumValuationMissing = "MINIMUM_VALUATION_MISSING"
