// Package countryref provides a static CountryReference backed by compiled-in
// continent and trade-region membership tables. Membership data changes on
// the timescale of treaty ratifications and ships as a code update.
package countryref

import (
	"sort"
	"strings"

	"github.com/concierge/backend/internal/domain/tariff"
)

type countryInfo struct {
	continent string
	regions   []string
}

// Trade region keys
const (
	RegionEU       = "eu"
	RegionEFTA     = "efta"
	RegionSAARC    = "saarc"
	RegionASEAN    = "asean"
	RegionGCC      = "gcc"
	RegionMercosur = "mercosur"
	RegionUSMCA    = "usmca"
)

var countries = map[string]countryInfo{
	// South Asia
	"IN": {"asia", []string{RegionSAARC}},
	"PK": {"asia", []string{RegionSAARC}},
	"BD": {"asia", []string{RegionSAARC}},
	"LK": {"asia", []string{RegionSAARC}},
	"NP": {"asia", []string{RegionSAARC}},
	"BT": {"asia", []string{RegionSAARC}},
	"MV": {"asia", []string{RegionSAARC}},
	"AF": {"asia", []string{RegionSAARC}},

	// Southeast Asia
	"SG": {"asia", []string{RegionASEAN}},
	"MY": {"asia", []string{RegionASEAN}},
	"TH": {"asia", []string{RegionASEAN}},
	"ID": {"asia", []string{RegionASEAN}},
	"PH": {"asia", []string{RegionASEAN}},
	"VN": {"asia", []string{RegionASEAN}},
	"MM": {"asia", []string{RegionASEAN}},
	"KH": {"asia", []string{RegionASEAN}},
	"LA": {"asia", []string{RegionASEAN}},
	"BN": {"asia", []string{RegionASEAN}},

	// East Asia
	"CN": {"asia", nil},
	"JP": {"asia", nil},
	"KR": {"asia", nil},
	"TW": {"asia", nil},
	"HK": {"asia", nil},
	"MN": {"asia", nil},

	// Gulf
	"AE": {"asia", []string{RegionGCC}},
	"SA": {"asia", []string{RegionGCC}},
	"QA": {"asia", []string{RegionGCC}},
	"KW": {"asia", []string{RegionGCC}},
	"BH": {"asia", []string{RegionGCC}},
	"OM": {"asia", []string{RegionGCC}},

	// Other Asia
	"IL": {"asia", nil},
	"TR": {"asia", nil},
	"KZ": {"asia", nil},
	"UZ": {"asia", nil},

	// European Union
	"DE": {"europe", []string{RegionEU}},
	"FR": {"europe", []string{RegionEU}},
	"IT": {"europe", []string{RegionEU}},
	"ES": {"europe", []string{RegionEU}},
	"NL": {"europe", []string{RegionEU}},
	"BE": {"europe", []string{RegionEU}},
	"AT": {"europe", []string{RegionEU}},
	"PL": {"europe", []string{RegionEU}},
	"SE": {"europe", []string{RegionEU}},
	"DK": {"europe", []string{RegionEU}},
	"FI": {"europe", []string{RegionEU}},
	"IE": {"europe", []string{RegionEU}},
	"PT": {"europe", []string{RegionEU}},
	"GR": {"europe", []string{RegionEU}},
	"CZ": {"europe", []string{RegionEU}},
	"HU": {"europe", []string{RegionEU}},
	"RO": {"europe", []string{RegionEU}},
	"BG": {"europe", []string{RegionEU}},
	"HR": {"europe", []string{RegionEU}},
	"SK": {"europe", []string{RegionEU}},
	"SI": {"europe", []string{RegionEU}},
	"LT": {"europe", []string{RegionEU}},
	"LV": {"europe", []string{RegionEU}},
	"EE": {"europe", []string{RegionEU}},
	"LU": {"europe", []string{RegionEU}},
	"CY": {"europe", []string{RegionEU}},
	"MT": {"europe", []string{RegionEU}},

	// EFTA
	"CH": {"europe", []string{RegionEFTA}},
	"NO": {"europe", []string{RegionEFTA}},
	"IS": {"europe", []string{RegionEFTA}},
	"LI": {"europe", []string{RegionEFTA}},

	// Other Europe
	"GB": {"europe", nil},
	"UA": {"europe", nil},
	"RS": {"europe", nil},
	"AL": {"europe", nil},

	// North America
	"US": {"north_america", []string{RegionUSMCA}},
	"CA": {"north_america", []string{RegionUSMCA}},
	"MX": {"north_america", []string{RegionUSMCA}},
	"CR": {"north_america", nil},
	"PA": {"north_america", nil},
	"GT": {"north_america", nil},
	"DO": {"north_america", nil},
	"JM": {"north_america", nil},

	// South America
	"BR": {"south_america", []string{RegionMercosur}},
	"AR": {"south_america", []string{RegionMercosur}},
	"UY": {"south_america", []string{RegionMercosur}},
	"PY": {"south_america", []string{RegionMercosur}},
	"CL": {"south_america", nil},
	"CO": {"south_america", nil},
	"PE": {"south_america", nil},
	"EC": {"south_america", nil},
	"BO": {"south_america", nil},
	"VE": {"south_america", nil},

	// Africa
	"ZA": {"africa", nil},
	"NG": {"africa", nil},
	"EG": {"africa", nil},
	"KE": {"africa", nil},
	"GH": {"africa", nil},
	"MA": {"africa", nil},
	"TZ": {"africa", nil},
	"ET": {"africa", nil},

	// Oceania
	"AU": {"oceania", nil},
	"NZ": {"oceania", nil},
	"FJ": {"oceania", nil},
	"PG": {"oceania", nil},
}

// StaticCountryReference implements tariff.CountryReference from the
// compiled-in tables. All methods are pure lookups and safe for concurrent
// use.
type StaticCountryReference struct {
	byRegion    map[string][]string
	byContinent map[string][]string
}

// New creates the reference and builds the reverse indexes
func New() *StaticCountryReference {
	ref := &StaticCountryReference{
		byRegion:    make(map[string][]string),
		byContinent: make(map[string][]string),
	}
	for code, info := range countries {
		ref.byContinent[info.continent] = append(ref.byContinent[info.continent], code)
		for _, region := range info.regions {
			ref.byRegion[region] = append(ref.byRegion[region], code)
		}
	}
	// Deterministic ordering for callers that display or log memberships
	for _, codes := range ref.byRegion {
		sort.Strings(codes)
	}
	for _, codes := range ref.byContinent {
		sort.Strings(codes)
	}
	return ref
}

func (r *StaticCountryReference) HasCountry(code string) bool {
	_, ok := countries[strings.ToUpper(code)]
	return ok
}

func (r *StaticCountryReference) HasRegion(key string) bool {
	_, ok := r.byRegion[strings.ToLower(key)]
	return ok
}

func (r *StaticCountryReference) HasContinent(name string) bool {
	_, ok := r.byContinent[strings.ToLower(name)]
	return ok
}

func (r *StaticCountryReference) ContinentOf(code string) string {
	return countries[strings.ToUpper(code)].continent
}

func (r *StaticCountryReference) RegionsOf(code string) []string {
	return countries[strings.ToUpper(code)].regions
}

func (r *StaticCountryReference) CountriesInRegion(key string) []string {
	return r.byRegion[strings.ToLower(key)]
}

func (r *StaticCountryReference) CountriesInContinent(name string) []string {
	return r.byContinent[strings.ToLower(name)]
}

func (r *StaticCountryReference) CountryCount() int {
	return len(countries)
}

var _ tariff.CountryReference = (*StaticCountryReference)(nil)
