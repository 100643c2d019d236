package tariff

import (
	"github.com/shopspring/decimal"
)

// Confidence scoring constants. Confidence rises with the number of
// affected countries (more data points behind the projection) and is
// capped below certainty.
var (
	confidenceFloor   = decimal.NewFromFloat(0.50)
	confidencePerStep = decimal.NewFromFloat(0.03)
	confidenceCeiling = decimal.NewFromFloat(0.95)
)

// ImpactEstimate projects the revenue consequence of a proposed rate change.
// Advisory only: it never blocks or alters a bulk operation.
type ImpactEstimate struct {
	EstimatedRevenueChange decimal.Decimal `json:"estimated_revenue_change"`
	ImpactPercentage       decimal.Decimal `json:"impact_percentage"`
	ConfidenceScore        decimal.Decimal `json:"confidence_score"`
	AffectedCountries      int             `json:"affected_countries"`
	TotalCountries         int             `json:"total_countries"`
}

// EstimateRevenueImpact projects the revenue delta of changing currentRate
// to newRate across the affected countries, scaled by historical volume and
// the share of markets affected.
//
// impact% = (new - current) / current * 100
// change  = volume * avgOrderValue * impact%/100 * affected/total
func EstimateRevenueImpact(
	currentRate, newRate decimal.Decimal,
	affectedCountries []string,
	historicalVolume int64,
	historicalAvgOrderValue decimal.Decimal,
	totalCountryCount int,
) (*ImpactEstimate, error) {
	if currentRate.IsZero() || currentRate.IsNegative() {
		return nil, ErrInvalidRate
	}
	if newRate.IsNegative() {
		return nil, ErrInvalidRate
	}
	if totalCountryCount <= 0 {
		return nil, ErrInvalidScope
	}

	hundred := decimal.NewFromInt(100)
	impactPct := newRate.Sub(currentRate).Div(currentRate).Mul(hundred)

	share := decimal.NewFromInt(int64(len(affectedCountries))).
		Div(decimal.NewFromInt(int64(totalCountryCount)))

	change := decimal.NewFromInt(historicalVolume).
		Mul(historicalAvgOrderValue).
		Mul(impactPct.Div(hundred)).
		Mul(share)

	confidence := confidenceFloor.Add(
		confidencePerStep.Mul(decimal.NewFromInt(int64(len(affectedCountries)))))
	if confidence.GreaterThan(confidenceCeiling) {
		confidence = confidenceCeiling
	}

	return &ImpactEstimate{
		EstimatedRevenueChange: change,
		ImpactPercentage:       impactPct,
		ConfidenceScore:        confidence,
		AffectedCountries:      len(affectedCountries),
		TotalCountries:         totalCountryCount,
	}, nil
}
