// Package outbreak is a client for the outbreak.info genomics API, which
// reports pangolin lineage prevalence per location.
package outbreak

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.outbreak.info"

// Client talks to the genomics API. Location IDs are ISO 3166-1 alpha-3
// country codes, optionally suffixed with a state abbreviation ("USA_NY").
type Client struct {
	http *resty.Client
}

// NewClient creates a client against the given base URL. An empty base URL
// selects the production endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2)
	return &Client{http: http}
}

// Close releases the client's idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// PrevalencePoint is one day of lineage prevalence at a location.
type PrevalencePoint struct {
	Date         string  `json:"date"`
	TotalCount   int     `json:"total_count"`
	LineageCount int     `json:"lineage_count"`
	Prevalence   float64 `json:"proportion"`
	CILower      float64 `json:"proportion_ci_lower"`
	CIUpper      float64 `json:"proportion_ci_upper"`
}

// LineageCount is one lineage's share of recent sequences at a location.
type LineageCount struct {
	Date       string  `json:"date"`
	Lineage    string  `json:"lineage"`
	Count      int     `json:"lineage_count"`
	Total      int     `json:"total_count"`
	Prevalence float64 `json:"prevalence_rolling"`
}

type prevalenceResponse struct {
	Success bool              `json:"success"`
	Results []PrevalencePoint `json:"results"`
}

type lineagesResponse struct {
	Success bool           `json:"success"`
	Results []LineageCount `json:"results"`
}

// PrevalenceByLocation returns the daily prevalence series of one lineage at
// one location, sorted by date. An empty result means the location has no
// sequences for that lineage.
func (c *Client) PrevalenceByLocation(ctx context.Context, locationID, lineage string) ([]PrevalencePoint, error) {
	var out prevalenceResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("location_id", locationID).
		SetQueryParam("pangolin_lineage", lineage).
		SetResult(&out).
		Get("/genomics/prevalence-by-location")
	if err != nil {
		return nil, fmt.Errorf("prevalence request for %s/%s failed: %w", locationID, lineage, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("prevalence request for %s/%s returned status %d", locationID, lineage, res.StatusCode())
	}
	if !out.Success {
		return nil, fmt.Errorf("prevalence request for %s/%s was not successful", locationID, lineage)
	}

	points := out.Results
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// AllLineages returns every lineage observed at a location over the trailing
// ndays days.
func (c *Client) AllLineages(ctx context.Context, locationID string, ndays int) ([]LineageCount, error) {
	var out lineagesResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("location_id", locationID).
		SetQueryParam("ndays", strconv.Itoa(ndays)).
		SetResult(&out).
		Get("/genomics/prevalence-by-location-all-lineages")
	if err != nil {
		return nil, fmt.Errorf("lineages request for %s failed: %w", locationID, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("lineages request for %s returned status %d", locationID, res.StatusCode())
	}
	if !out.Success {
		return nil, fmt.Errorf("lineages request for %s was not successful", locationID)
	}
	return out.Results, nil
}

// LineageNames extracts the distinct lineage names from a lineages response,
// uppercased, with the catch-all "other" bucket removed. Order follows how
// often each lineage appears in the results.
func LineageNames(counts []LineageCount) []string {
	freq := make(map[string]int)
	var order []string
	for _, lc := range counts {
		if strings.EqualFold(lc.Lineage, "other") {
			continue
		}
		name := strings.ToUpper(lc.Lineage)
		if _, ok := freq[name]; !ok {
			order = append(order, name)
		}
		freq[name]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	return order
}
