// Package world_strains builds the risk calculator's variant matrix: for
// each country, every lineage's rolling prevalence smoothed into a
// prevalence_gaussian column, joined with the country's population.
package world_strains

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/outbreak"
	"github.com/epigrid/epigridgo/internal/population"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
	"github.com/epigrid/epigridgo/internal/series"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'world_strains' runner.
type Input struct {
	Countries      []string `epi:"countries"`
	StartDate      string   `epi:"start_date"`
	Sigma          float64  `epi:"sigma"`
	Window         int      `epi:"window"`
	PopulationFile string   `epi:"population_file"`
	Key            string   `epi:"key"`
	BaseURL        string   `epi:"base_url"`
}

// Deps declares the resources the runner needs injected.
type Deps struct {
	Store *s3store.Store `epi:"store"`
}

// Output reports the published object and per-country coverage.
type Output struct {
	Key       string   `cty:"key"`
	Countries int      `cty:"countries"`
	NoData    []string `cty:"no_data"`
}

const dateLayout = "2006-01-02"

// OnRunWorldStrains pulls every lineage's rolling prevalence for each
// country since the start date, applies a trailing mean and Gaussian smooth,
// and publishes one wide CSV joined with population figures.
func OnRunWorldStrains(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	populations, err := population.LoadFile(input.PopulationFile)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q: %w", input.StartDate, err)
	}
	dates := dateRange(start, time.Now().UTC())

	client := outbreak.NewClient(input.BaseURL, 2*time.Minute)
	defer client.Close()

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	sigmaLabel := strconv.FormatFloat(input.Sigma, 'f', -1, 64)
	if err := writer.Write([]string{"Date", "CountryCode", "Population", "Lineage", "prevalence_gaussian" + sigmaLabel}); err != nil {
		return nil, err
	}

	out := &Output{}
	for _, country := range input.Countries {
		counts, err := client.AllLineages(ctx, country, len(dates))
		if err != nil {
			logger.Warn("Lineage listing failed, skipping country.", "country", country, "error", err)
			out.NoData = append(out.NoData, country)
			continue
		}
		if len(counts) == 0 {
			out.NoData = append(out.NoData, country)
			continue
		}

		pop := populations[country]
		byLineage := lineageSeries(counts, dates)
		for _, lineage := range sortedLineages(byLineage) {
			smoothed, err := smoothSeries(byLineage[lineage], input.Window, input.Sigma)
			if err != nil {
				return nil, err
			}
			for i, date := range dates {
				row := []string{
					date.Format(dateLayout),
					country,
					strconv.FormatFloat(pop, 'f', -1, 64),
					lineage,
					strconv.FormatFloat(smoothed[i], 'f', -1, 64),
				}
				if err := writer.Write(row); err != nil {
					return nil, err
				}
			}
		}
		out.Countries++
		logger.Info("Country strains processed.", "country", country)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	if out.Countries == 0 {
		return nil, fmt.Errorf("no country returned any lineage data")
	}

	if err := deps.Store.Put(ctx, input.Key, buf.Bytes()); err != nil {
		return nil, err
	}
	out.Key = input.Key
	return out, nil
}

// dateRange lists every day from start to end inclusive.
func dateRange(start, end time.Time) []time.Time {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// lineageSeries pivots the API results into one date-aligned prevalence
// series per lineage. Days without an observation are zero.
func lineageSeries(counts []outbreak.LineageCount, dates []time.Time) map[string][]float64 {
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d.Format(dateLayout)] = i
	}

	byLineage := make(map[string][]float64)
	for _, lc := range counts {
		i, ok := index[lc.Date]
		if !ok {
			continue
		}
		values, ok := byLineage[lc.Lineage]
		if !ok {
			values = make([]float64, len(dates))
			byLineage[lc.Lineage] = values
		}
		values[i] = lc.Prevalence
	}
	return byLineage
}

// smoothSeries applies the trailing mean then the Gaussian smooth.
func smoothSeries(values []float64, window int, sigma float64) ([]float64, error) {
	rolled, err := series.RollingMean(values, window)
	if err != nil {
		return nil, err
	}
	series.FillZero(rolled)
	return series.Gaussian(rolled, sigma)
}

func sortedLineages(byLineage map[string][]float64) []string {
	names := make([]string, 0, len(byLineage))
	for name := range byLineage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunWorldStrains", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunWorldStrains,
	})
}
