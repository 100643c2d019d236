package tariff

import (
	"strings"
	"time"

	"github.com/concierge/backend/internal/domain/shared"
)

// PricingType describes how a service's rate is applied to a dutiable base
type PricingType string

const (
	// PricingTypePercentage rates are fractions applied to the dutiable base (0.15 = 15%)
	PricingTypePercentage PricingType = "percentage"
	// PricingTypeFixed rates are flat per-shipment amounts
	PricingTypeFixed PricingType = "fixed"
)

// Service is a priceable concern such as customs duty or a handling fee.
// The key and pricing type are immutable once the service is in use;
// only display metadata may change.
type Service struct {
	shared.BaseAggregateRoot
	Key         string
	Name        string
	Description string
	PricingType PricingType
}

// NewService creates a new priceable service
func NewService(key, name string, pricingType PricingType) (*Service, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if err := validateServiceKey(key); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Service name cannot be empty")
	}
	if pricingType != PricingTypePercentage && pricingType != PricingTypeFixed {
		return nil, shared.NewDomainError("INVALID_PRICING_TYPE", "Pricing type must be percentage or fixed")
	}

	return &Service{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Key:               key,
		Name:              name,
		PricingType:       pricingType,
	}, nil
}

// UpdateDisplay updates the mutable display metadata
func (s *Service) UpdateDisplay(name, description string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Service name cannot be empty")
	}
	s.Name = name
	s.Description = description
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// IsPercentage reports whether rates for this service are percentages
func (s *Service) IsPercentage() bool {
	return s.PricingType == PricingTypePercentage
}

func validateServiceKey(key string) error {
	if key == "" {
		return shared.NewDomainError("INVALID_KEY", "Service key cannot be empty")
	}
	if len(key) > 50 {
		return shared.NewDomainError("INVALID_KEY", "Service key cannot exceed 50 characters")
	}
	for _, r := range key {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			return shared.NewDomainError("INVALID_KEY", "Service key can only contain lowercase letters, numbers, and underscores")
		}
	}
	return nil
}
