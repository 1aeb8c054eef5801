package oxford

import (
	"fmt"

	"github.com/epigrid/epigridgo/internal/series"
)

// DefaultSigma is the smoothing width used for published daily series.
const DefaultSigma = 7

// SmoothCasesDeaths derives daily counts from a group's cumulative totals
// and smooths them with a Gaussian of the given sigma. The group must be a
// single jurisdiction sorted by date; derived values are written back onto
// the records.
func SmoothCasesDeaths(group []Record, sigma float64) error {
	if len(group) == 0 {
		return nil
	}

	cases := make([]float64, len(group))
	deaths := make([]float64, len(group))
	for i, rec := range group {
		cases[i] = rec.ConfirmedCases
		deaths[i] = rec.ConfirmedDeaths
	}

	dailyCases := series.FillZero(series.Diff(cases))
	dailyDeaths := series.FillZero(series.Diff(deaths))

	smoothCases, err := series.Gaussian(dailyCases, sigma)
	if err != nil {
		return fmt.Errorf("failed to smooth daily cases: %w", err)
	}
	smoothDeaths, err := series.Gaussian(dailyDeaths, sigma)
	if err != nil {
		return fmt.Errorf("failed to smooth daily deaths: %w", err)
	}

	for i := range group {
		group[i].DailyCases = dailyCases[i]
		group[i].DailyDeaths = dailyDeaths[i]
		group[i].SmoothDailyCases = smoothCases[i]
		group[i].SmoothDailyDeaths = smoothDeaths[i]
	}
	return nil
}

// SmoothCumulative smooths a group's cumulative totals directly, after
// replacing missing cells with zero. This feeds the US-states risk
// calculator view, which works on cumulative rather than daily counts.
func SmoothCumulative(group []Record, sigma float64) error {
	if len(group) == 0 {
		return nil
	}

	cases := make([]float64, len(group))
	deaths := make([]float64, len(group))
	for i, rec := range group {
		cases[i] = rec.ConfirmedCases
		deaths[i] = rec.ConfirmedDeaths
	}
	series.FillZero(cases)
	series.FillZero(deaths)

	smoothCases, err := series.Gaussian(cases, sigma)
	if err != nil {
		return fmt.Errorf("failed to smooth cumulative cases: %w", err)
	}
	smoothDeaths, err := series.Gaussian(deaths, sigma)
	if err != nil {
		return fmt.Errorf("failed to smooth cumulative deaths: %w", err)
	}

	for i := range group {
		group[i].SmoothCases = smoothCases[i]
		group[i].SmoothDeaths = smoothDeaths[i]
	}
	return nil
}
