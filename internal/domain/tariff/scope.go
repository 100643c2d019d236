package tariff

import (
	"fmt"
	"strings"
)

// ScopeKind identifies the granularity level of a rate override
type ScopeKind string

const (
	ScopeKindGlobal    ScopeKind = "global"
	ScopeKindContinent ScopeKind = "continent"
	ScopeKindRegion    ScopeKind = "region"
	ScopeKindCountry   ScopeKind = "country"
	ScopeKindProduct   ScopeKind = "product"
)

// Tier names the scope level that ultimately supplied a resolved rate
type Tier string

const (
	TierGlobal    Tier = "global"
	TierContinent Tier = "continent"
	TierRegion    Tier = "region"
	TierCountry   Tier = "country"
	TierProduct   Tier = "product"
)

// Scope is a tagged union identifying where a rate override applies.
// Exactly the fields implied by Kind are set; all others are empty.
// Scopes form a strict specificity order: product > country > region >
// continent > global.
type Scope struct {
	Kind               ScopeKind `json:"kind"`
	Continent          string    `json:"continent,omitempty"`
	Region             string    `json:"region,omitempty"`
	CountryCode        string    `json:"country_code,omitempty"`
	ClassificationCode string    `json:"classification_code,omitempty"`
}

// GlobalScope returns the service-wide default scope
func GlobalScope() Scope {
	return Scope{Kind: ScopeKindGlobal}
}

// ContinentScope returns a scope covering every country of a continent
func ContinentScope(name string) Scope {
	return Scope{Kind: ScopeKindContinent, Continent: strings.ToLower(strings.TrimSpace(name))}
}

// RegionScope returns a scope covering every country of a trade region
func RegionScope(key string) Scope {
	return Scope{Kind: ScopeKindRegion, Region: strings.ToLower(strings.TrimSpace(key))}
}

// CountryScope returns a scope covering a single country
func CountryScope(code string) Scope {
	return Scope{Kind: ScopeKindCountry, CountryCode: strings.ToUpper(strings.TrimSpace(code))}
}

// ProductScope returns a scope covering one product classification within one country
func ProductScope(classificationCode, countryCode string) Scope {
	return Scope{
		Kind:               ScopeKindProduct,
		CountryCode:        strings.ToUpper(strings.TrimSpace(countryCode)),
		ClassificationCode: strings.TrimSpace(classificationCode),
	}
}

// Specificity returns the position in the precedence order.
// Higher values always win during resolution, regardless of rate value.
func (s Scope) Specificity() int {
	switch s.Kind {
	case ScopeKindGlobal:
		return 0
	case ScopeKindContinent:
		return 1
	case ScopeKindRegion:
		return 2
	case ScopeKindCountry:
		return 3
	case ScopeKindProduct:
		return 4
	default:
		return -1
	}
}

// Tier returns the tier label reported for rates resolved at this scope
func (s Scope) Tier() Tier {
	switch s.Kind {
	case ScopeKindGlobal:
		return TierGlobal
	case ScopeKindContinent:
		return TierContinent
	case ScopeKindRegion:
		return TierRegion
	case ScopeKindCountry:
		return TierCountry
	case ScopeKindProduct:
		return TierProduct
	default:
		return ""
	}
}

// Key returns the deterministic storage key for the scope.
// One active override per (service, Key()) is the store invariant.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeKindGlobal:
		return "global"
	case ScopeKindContinent:
		return "continent:" + s.Continent
	case ScopeKindRegion:
		return "region:" + s.Region
	case ScopeKindCountry:
		return "country:" + s.CountryCode
	case ScopeKindProduct:
		return fmt.Sprintf("product:%s:%s", s.ClassificationCode, s.CountryCode)
	default:
		return ""
	}
}

// String implements fmt.Stringer
func (s Scope) String() string {
	return s.Key()
}

// Validate checks the scope against the country reference data.
// Unknown countries, regions and continents are rejected with ErrInvalidScope.
func (s Scope) Validate(ref CountryReference) error {
	switch s.Kind {
	case ScopeKindGlobal:
		return nil
	case ScopeKindContinent:
		if s.Continent == "" || !ref.HasContinent(s.Continent) {
			return ErrInvalidScope
		}
		return nil
	case ScopeKindRegion:
		if s.Region == "" || !ref.HasRegion(s.Region) {
			return ErrInvalidScope
		}
		return nil
	case ScopeKindCountry:
		if s.CountryCode == "" || !ref.HasCountry(s.CountryCode) {
			return ErrInvalidScope
		}
		return nil
	case ScopeKindProduct:
		if s.ClassificationCode == "" {
			return ErrInvalidScope
		}
		if s.CountryCode == "" || !ref.HasCountry(s.CountryCode) {
			return ErrInvalidScope
		}
		return nil
	default:
		return ErrInvalidScope
	}
}

// Equals reports whether two scopes identify the same override slot
func (s Scope) Equals(other Scope) bool {
	return s.Key() == other.Key() && s.Kind == other.Kind
}

// ParseScopeKind converts a string to a ScopeKind
func ParseScopeKind(raw string) (ScopeKind, error) {
	switch ScopeKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeKindGlobal:
		return ScopeKindGlobal, nil
	case ScopeKindContinent:
		return ScopeKindContinent, nil
	case ScopeKindRegion:
		return ScopeKindRegion, nil
	case ScopeKindCountry:
		return ScopeKindCountry, nil
	case ScopeKindProduct:
		return ScopeKindProduct, nil
	default:
		return "", ErrInvalidScope
	}
}
