package oxford

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// WriteDailyCSV writes smoothed daily series for a set of groups. The smooth
// column names carry the sigma, e.g. SmoothDailyCases7.
func WriteDailyCSV(w io.Writer, groups map[string][]Record, sigma float64) error {
	writer := csv.NewWriter(w)
	sigmaLabel := strconv.FormatFloat(sigma, 'f', -1, 64)

	header := []string{
		"Date", "CountryName", "CountryCode", "RegionName", "RegionCode", "Jurisdiction",
		"ConfirmedCases", "ConfirmedDeaths", "DailyCases", "DailyDeaths",
		"SmoothDailyCases" + sigmaLabel, "SmoothDailyDeaths" + sigmaLabel,
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, key := range SortedKeys(groups) {
		for _, rec := range groups[key] {
			row := []string{
				rec.Date.Format(dateLayout),
				rec.CountryName,
				rec.CountryCode,
				rec.RegionName,
				rec.RegionCode,
				rec.Jurisdiction,
				formatCell(rec.ConfirmedCases),
				formatCell(rec.ConfirmedDeaths),
				formatCell(rec.DailyCases),
				formatCell(rec.DailyDeaths),
				formatCell(rec.SmoothDailyCases),
				formatCell(rec.SmoothDailyDeaths),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteStatesCSV writes the US-states view with smoothed cumulative totals.
// The smooth column names carry the sigma, e.g. Smooth7ConfirmedCases.
func WriteStatesCSV(w io.Writer, groups map[string][]Record, sigma float64) error {
	writer := csv.NewWriter(w)
	sigmaLabel := strconv.FormatFloat(sigma, 'f', -1, 64)

	header := []string{
		"Date", "RegionCode", "RegionName", "ConfirmedCases", "ConfirmedDeaths",
		"Smooth" + sigmaLabel + "ConfirmedCases", "Smooth" + sigmaLabel + "ConfirmedDeaths",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, key := range SortedKeys(groups) {
		for _, rec := range groups[key] {
			row := []string{
				rec.Date.Format(dateLayout),
				rec.RegionCode,
				rec.RegionName,
				formatCell(rec.ConfirmedCases),
				formatCell(rec.ConfirmedDeaths),
				formatCell(rec.SmoothCases),
				formatCell(rec.SmoothDeaths),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
