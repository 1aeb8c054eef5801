// Package geo resolves country and subdivision codes. Policy-tracker data
// identifies US states by region codes of the form "US_NY", which are ISO
// 3166-2 codes with the hyphen replaced by an underscore.
package geo

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pariz/gountries"
)

// Resolver answers country and subdivision lookups from the embedded ISO
// 3166 dataset. It is safe for concurrent use.
type Resolver struct {
	query *gountries.Query

	mu       sync.Mutex
	regCache map[string][]string
}

// NewResolver loads the embedded country dataset.
func NewResolver() *Resolver {
	return &Resolver{
		query:    gountries.New(),
		regCache: make(map[string][]string),
	}
}

// Alpha3 converts an ISO 3166-1 alpha-2 country code to its alpha-3 form.
func (r *Resolver) Alpha3(alpha2 string) (string, error) {
	country, err := r.query.FindCountryByAlpha(alpha2)
	if err != nil {
		return "", fmt.Errorf("unknown country code %q: %w", alpha2, err)
	}
	return country.Alpha3, nil
}

// CountryName returns the common name for an alpha-2 or alpha-3 country code.
func (r *Resolver) CountryName(code string) (string, error) {
	country, err := r.query.FindCountryByAlpha(code)
	if err != nil {
		return "", fmt.Errorf("unknown country code %q: %w", code, err)
	}
	return country.Name.Common, nil
}

// RegionCodes returns the policy-tracker region codes for every subdivision
// of a country, sorted. For the United States this yields codes like "US_NY".
func (r *Resolver) RegionCodes(alpha2 string) ([]string, error) {
	alpha2 = strings.ToUpper(alpha2)

	r.mu.Lock()
	cached, ok := r.regCache[alpha2]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	country, err := r.query.FindCountryByAlpha(alpha2)
	if err != nil {
		return nil, fmt.Errorf("unknown country code %q: %w", alpha2, err)
	}

	subdivisions := country.SubDivisions()
	codes := make([]string, 0, len(subdivisions))
	for _, sub := range subdivisions {
		codes = append(codes, RegionCode(country.Alpha2, sub.Code))
	}
	sort.Strings(codes)

	r.mu.Lock()
	r.regCache[alpha2] = codes
	r.mu.Unlock()
	return codes, nil
}

// SubdivisionName resolves a region code like "US_NY" to the subdivision's
// name ("New York").
func (r *Resolver) SubdivisionName(regionCode string) (string, error) {
	alpha2, subCode, ok := splitRegionCode(regionCode)
	if !ok {
		return "", fmt.Errorf("malformed region code %q", regionCode)
	}

	country, err := r.query.FindCountryByAlpha(alpha2)
	if err != nil {
		return "", fmt.Errorf("unknown country code %q: %w", alpha2, err)
	}
	for _, sub := range country.SubDivisions() {
		if strings.EqualFold(sub.Code, subCode) {
			return sub.Name, nil
		}
	}
	return "", fmt.Errorf("unknown subdivision %q for country %q", subCode, alpha2)
}

// RegionCode builds a policy-tracker region code from a country alpha-2 code
// and a subdivision code.
func RegionCode(alpha2, subdivision string) string {
	return strings.ToUpper(alpha2) + "_" + strings.ToUpper(subdivision)
}

func splitRegionCode(code string) (alpha2, subdivision string, ok bool) {
	parts := strings.SplitN(code, "_", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || parts[1] == "" {
		return "", "", false
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), true
}
