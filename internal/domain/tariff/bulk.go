package tariff

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BulkOperationType is the kind of delta a bulk operation applies
type BulkOperationType string

const (
	BulkSetRate         BulkOperationType = "set_rate"
	BulkIncreasePercent BulkOperationType = "increase_percent"
	BulkDecreasePercent BulkOperationType = "decrease_percent"
	BulkIncreaseAmount  BulkOperationType = "increase_amount"
	BulkDecreaseAmount  BulkOperationType = "decrease_amount"
)

// ParseBulkOperationType converts a string to a BulkOperationType
func ParseBulkOperationType(raw string) (BulkOperationType, error) {
	switch BulkOperationType(strings.ToLower(strings.TrimSpace(raw))) {
	case BulkSetRate:
		return BulkSetRate, nil
	case BulkIncreasePercent:
		return BulkIncreasePercent, nil
	case BulkDecreasePercent:
		return BulkDecreasePercent, nil
	case BulkIncreaseAmount:
		return BulkIncreaseAmount, nil
	case BulkDecreaseAmount:
		return BulkDecreaseAmount, nil
	default:
		return "", ErrInvalidRate
	}
}

// BulkOperation is a single delta applied across many countries in one
// administrative call.
type BulkOperation struct {
	Type  BulkOperationType `json:"type"`
	Value decimal.Decimal   `json:"value"`
}

// Validate checks the operation parameters before any write
func (op BulkOperation) Validate() error {
	switch op.Type {
	case BulkSetRate, BulkIncreasePercent, BulkDecreasePercent, BulkIncreaseAmount, BulkDecreaseAmount:
	default:
		return ErrInvalidRate
	}
	if op.Value.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}

// RequiresCurrentRate reports whether the operation is relative to the
// country's current effective rate. Countries with no resolvable rate are
// skipped for relative operations, not failed.
func (op BulkOperation) RequiresCurrentRate() bool {
	return op.Type != BulkSetRate
}

// Apply computes the new rate from the current effective rate.
//
// Percent operations multiply the current resolved rate, so sequential
// percent operations are not invertible: +10% then -10% on a 10% rate
// yields 9.9%, not 10%. This is the intended behavior.
//
// Amount decreases clamp at zero. Percent decreases above 100% produce a
// negative result, which the subsequent write rejects as an invalid rate;
// that per-country failure is recorded rather than papered over.
func (op BulkOperation) Apply(current decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	switch op.Type {
	case BulkSetRate:
		return op.Value
	case BulkIncreasePercent:
		return current.Mul(decimal.NewFromInt(1).Add(op.Value.Div(hundred)))
	case BulkDecreasePercent:
		return current.Mul(decimal.NewFromInt(1).Sub(op.Value.Div(hundred)))
	case BulkIncreaseAmount:
		return current.Add(op.Value)
	case BulkDecreaseAmount:
		next := current.Sub(op.Value)
		if next.IsNegative() {
			return decimal.Zero
		}
		return next
	default:
		return current
	}
}

// CountryResultStatus classifies the per-country outcome of a bulk operation
type CountryResultStatus string

const (
	CountryResultUpdated CountryResultStatus = "updated"
	CountryResultSkipped CountryResultStatus = "skipped"
	CountryResultFailed  CountryResultStatus = "failed"
)

// CountryResult records the independent outcome for one country
type CountryResult struct {
	CountryCode  string              `json:"country_code"`
	Status       CountryResultStatus `json:"status"`
	PreviousRate *decimal.Decimal    `json:"previous_rate,omitempty"`
	NewRate      *decimal.Decimal    `json:"new_rate,omitempty"`
	ErrorCode    string              `json:"error_code,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// BulkOperationResult is the normal successful-with-caveats return shape of
// a bulk operation. It exists only for the duration of one call; the engine
// never persists it. One country's failure never aborts or rolls back
// another country's write.
type BulkOperationResult struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Operation BulkOperation   `json:"operation"`
	Results   []CountryResult `json:"results"`
	Updated   int             `json:"updated"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
}

// NewBulkOperationResult creates an empty result for one bulk call
func NewBulkOperationResult(serviceID uuid.UUID, op BulkOperation) *BulkOperationResult {
	return &BulkOperationResult{
		ServiceID: serviceID,
		Operation: op,
		Results:   make([]CountryResult, 0),
	}
}

// Record adds one country's outcome and updates the summary counters.
// Not safe for concurrent use; callers serialize access.
func (r *BulkOperationResult) Record(result CountryResult) {
	r.Results = append(r.Results, result)
	switch result.Status {
	case CountryResultUpdated:
		r.Updated++
	case CountryResultSkipped:
		r.Skipped++
	case CountryResultFailed:
		r.Failed++
	}
}

// HasFailures reports whether any country failed
func (r *BulkOperationResult) HasFailures() bool {
	return r.Failed > 0
}

// UpdatedCountries returns the codes of countries whose rate was written
func (r *BulkOperationResult) UpdatedCountries() []string {
	codes := make([]string, 0, r.Updated)
	for _, result := range r.Results {
		if result.Status == CountryResultUpdated {
			codes = append(codes, result.CountryCode)
		}
	}
	return codes
}
