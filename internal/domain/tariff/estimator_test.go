package tariff

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateRevenueImpact(t *testing.T) {
	current := decimal.NewFromFloat(0.10)
	proposed := decimal.NewFromFloat(0.12)
	avgOrder := decimal.NewFromInt(200)

	estimate, err := EstimateRevenueImpact(current, proposed, []string{"IN", "NP"}, 1000, avgOrder, 10)
	require.NoError(t, err)

	// (0.12 - 0.10) / 0.10 * 100 = 20%
	assert.True(t, estimate.ImpactPercentage.Equal(decimal.NewFromInt(20)),
		"got %s", estimate.ImpactPercentage)

	// 1000 * 200 * 0.20 * (2/10) = 8000
	assert.True(t, estimate.EstimatedRevenueChange.Equal(decimal.NewFromInt(8000)),
		"got %s", estimate.EstimatedRevenueChange)
	assert.Equal(t, 2, estimate.AffectedCountries)
}

func TestEstimateRevenueImpact_DecreaseIsNegative(t *testing.T) {
	current := decimal.NewFromFloat(0.20)
	proposed := decimal.NewFromFloat(0.10)

	estimate, err := EstimateRevenueImpact(current, proposed, []string{"IN"}, 100, decimal.NewFromInt(50), 10)
	require.NoError(t, err)
	assert.True(t, estimate.ImpactPercentage.IsNegative())
	assert.True(t, estimate.EstimatedRevenueChange.IsNegative())
}

// More affected countries means more data points behind the projection.
func TestEstimateRevenueImpact_ConfidenceMonotonic(t *testing.T) {
	current := decimal.NewFromFloat(0.10)
	proposed := decimal.NewFromFloat(0.11)
	avgOrder := decimal.NewFromInt(100)

	countries := []string{"IN", "NP", "BD", "LK", "PK", "BT", "MV", "AF", "US", "DE"}

	prev := decimal.Zero
	for n := 1; n <= len(countries); n++ {
		estimate, err := EstimateRevenueImpact(current, proposed, countries[:n], 100, avgOrder, 50)
		require.NoError(t, err)
		assert.True(t, estimate.ConfidenceScore.GreaterThanOrEqual(prev),
			"confidence dropped at n=%d", n)
		prev = estimate.ConfidenceScore
	}
}

func TestEstimateRevenueImpact_ConfidenceCapped(t *testing.T) {
	current := decimal.NewFromFloat(0.10)
	proposed := decimal.NewFromFloat(0.11)

	many := make([]string, 100)
	for i := range many {
		many[i] = "C" + string(rune('A'+i%26))
	}

	estimate, err := EstimateRevenueImpact(current, proposed, many, 100, decimal.NewFromInt(100), 200)
	require.NoError(t, err)
	assert.True(t, estimate.ConfidenceScore.Equal(confidenceCeiling))
}

func TestEstimateRevenueImpact_InvalidInputs(t *testing.T) {
	avgOrder := decimal.NewFromInt(100)

	t.Run("zero current rate", func(t *testing.T) {
		_, err := EstimateRevenueImpact(decimal.Zero, decimal.NewFromFloat(0.1), []string{"IN"}, 100, avgOrder, 10)
		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("negative new rate", func(t *testing.T) {
		_, err := EstimateRevenueImpact(decimal.NewFromFloat(0.1), decimal.NewFromFloat(-0.1), []string{"IN"}, 100, avgOrder, 10)
		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("no known countries", func(t *testing.T) {
		_, err := EstimateRevenueImpact(decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.2), []string{"IN"}, 100, avgOrder, 0)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})
}
