// Package oxford parses the Oxford covid policy tracker dataset
// (OxCGRT_latest.csv) and derives daily and smoothed case and death series
// from its cumulative totals.
package oxford

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

// DatasetURL is the canonical location of the policy tracker CSV.
const DatasetURL = "https://raw.githubusercontent.com/OxCGRT/covid-policy-tracker/master/data/OxCGRT_latest.csv"

// Jurisdiction levels present in the dataset.
const (
	JurisdictionNational = "NAT_TOTAL"
	JurisdictionState    = "STATE_TOTAL"
)

// dateLayout is the dataset's date encoding, e.g. 20210314.
const dateLayout = "20060102"

// Record is one row of the policy tracker dataset, restricted to the columns
// the pipeline consumes. Missing numeric cells are NaN. The derived fields
// are zero until a smoothing pass fills them in.
type Record struct {
	Date            time.Time
	CountryName     string
	CountryCode     string
	RegionName      string
	RegionCode      string
	Jurisdiction    string
	ConfirmedCases  float64
	ConfirmedDeaths float64

	DailyCases        float64
	DailyDeaths       float64
	SmoothDailyCases  float64
	SmoothDailyDeaths float64
	SmoothCases       float64
	SmoothDeaths      float64
}

// ParseCSV reads the policy tracker CSV, keeping only the columns the
// pipeline uses. Rows with unparsable dates are rejected; empty numeric
// cells become NaN.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"Date", "CountryCode", "ConfirmedCases", "ConfirmedDeaths"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++

		date, err := time.Parse(dateLayout, cell(row, cols, "Date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, cell(row, cols, "Date"), err)
		}

		records = append(records, Record{
			Date:            date,
			CountryName:     cell(row, cols, "CountryName"),
			CountryCode:     cell(row, cols, "CountryCode"),
			RegionName:      cell(row, cols, "RegionName"),
			RegionCode:      cell(row, cols, "RegionCode"),
			Jurisdiction:    cell(row, cols, "Jurisdiction"),
			ConfirmedCases:  parseCell(cell(row, cols, "ConfirmedCases")),
			ConfirmedDeaths: parseCell(cell(row, cols, "ConfirmedDeaths")),
		})
	}
	return records, nil
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// SplitJurisdiction partitions records into national and state totals. Rows
// at other jurisdiction levels are dropped.
func SplitJurisdiction(records []Record) (national, states []Record) {
	for _, rec := range records {
		switch rec.Jurisdiction {
		case JurisdictionNational:
			national = append(national, rec)
		case JurisdictionState:
			states = append(states, rec)
		}
	}
	return national, states
}

// GroupNational groups national rows by country code, each group sorted by
// date.
func GroupNational(records []Record) map[string][]Record {
	return groupBy(records, func(r Record) string { return r.CountryCode })
}

// GroupStates groups state rows by country and region code, each group
// sorted by date.
func GroupStates(records []Record) map[string][]Record {
	return groupBy(records, func(r Record) string { return r.CountryCode + "/" + r.RegionCode })
}

func groupBy(records []Record, key func(Record) string) map[string][]Record {
	groups := make(map[string][]Record)
	for _, rec := range records {
		k := key(rec)
		groups[k] = append(groups[k], rec)
	}
	for k := range groups {
		group := groups[k]
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
	}
	return groups
}

// FilterRegions keeps only rows whose region code appears in the given set.
func FilterRegions(records []Record, regionCodes []string) []Record {
	allowed := make(map[string]struct{}, len(regionCodes))
	for _, code := range regionCodes {
		allowed[code] = struct{}{}
	}
	var out []Record
	for _, rec := range records {
		if _, ok := allowed[rec.RegionCode]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// SortedKeys returns the group keys in deterministic order.
func SortedKeys(groups map[string][]Record) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
