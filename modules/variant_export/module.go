// Package variant_export publishes state-level variant prevalence: for each
// lineage, every state's smoothed series concatenated into a single CSV.
package variant_export

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/geo"
	"github.com/epigrid/epigridgo/internal/outbreak"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'variant_export' runner.
type Input struct {
	Country  string   `epi:"country"`
	Lineages []string `epi:"lineages"`
	Sigma    float64  `epi:"sigma"`
	Folder   string   `epi:"folder"`
	BaseURL  string   `epi:"base_url"`
}

// Deps declares the resources the runner needs injected.
type Deps struct {
	Store *s3store.Store `epi:"store"`
}

// Output reports the published objects and which lineages had no state data.
type Output struct {
	Keys    []string `cty:"keys"`
	Skipped []string `cty:"skipped"`
}

// OnRunVariantExport pulls prevalence series for every state of a country,
// one lineage at a time, smooths each state's series, and uploads one
// concatenated CSV per lineage.
func OnRunVariantExport(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	resolver := geo.NewResolver()
	alpha3, err := resolver.Alpha3(input.Country)
	if err != nil {
		return nil, err
	}
	regionCodes, err := resolver.RegionCodes(input.Country)
	if err != nil {
		return nil, err
	}

	client := outbreak.NewClient(input.BaseURL, 2*time.Minute)
	defer client.Close()

	now := time.Now().UTC()
	out := &Output{}
	for _, lineage := range input.Lineages {
		csv, states, err := statesCSV(ctx, client, input, lineage, alpha3, regionCodes)
		if err != nil {
			return nil, err
		}
		if states == 0 {
			logger.Warn("No state data found for lineage, nothing published.", "lineage", lineage, "country", alpha3)
			out.Skipped = append(out.Skipped, lineage)
			continue
		}

		key := s3store.VariantKey(input.Folder, now, lineage, alpha3, false)
		if err := deps.Store.Put(ctx, key, csv); err != nil {
			return nil, err
		}
		out.Keys = append(out.Keys, key)

		logger.Info("Variant export published.", "lineage", lineage, "states", states, "key", key)
	}
	return out, nil
}

// statesCSV concatenates the smoothed prevalence series of every state for
// one lineage, keeping the header row only once.
func statesCSV(ctx context.Context, client *outbreak.Client, input *Input, lineage, alpha3 string, regionCodes []string) ([]byte, int, error) {
	var buf bytes.Buffer
	states := 0
	for _, regionCode := range regionCodes {
		abbr := strings.TrimPrefix(regionCode, strings.ToUpper(input.Country)+"_")
		locationID := fmt.Sprintf("%s_%s", alpha3, abbr)

		points, err := client.PrevalenceByLocation(ctx, locationID, lineage)
		if err != nil {
			return nil, 0, err
		}
		if len(points) == 0 {
			continue
		}

		smoothed, err := outbreak.Smooth(points, input.Sigma)
		if err != nil {
			return nil, 0, err
		}

		var stateBuf bytes.Buffer
		if err := outbreak.WriteCSV(&stateBuf, smoothed, input.Sigma, abbr); err != nil {
			return nil, 0, err
		}
		chunk := stateBuf.String()
		if states > 0 {
			// Drop the header on all but the first state.
			if idx := strings.IndexByte(chunk, '\n'); idx >= 0 {
				chunk = chunk[idx+1:]
			}
		}
		buf.WriteString(chunk)
		states++
	}
	return buf.Bytes(), states, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunVariantExport", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunVariantExport,
	})
}
