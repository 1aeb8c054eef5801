// Package strain_prevalence pulls country-level variant prevalence from the
// outbreak.info genomics API, smooths each lineage's series and publishes
// one CSV per lineage.
package strain_prevalence

import (
	"bytes"
	"context"
	"reflect"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/geo"
	"github.com/epigrid/epigridgo/internal/outbreak"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'strain_prevalence' runner.
type Input struct {
	Country      string  `epi:"country"`
	NDays        int     `epi:"ndays"`
	Sigma        float64 `epi:"sigma"`
	Folder       string  `epi:"folder"`
	BaseURL      string  `epi:"base_url"`
	LineageLimit int     `epi:"lineage_limit"`
}

// Deps declares the resources the runner needs injected.
type Deps struct {
	Store *s3store.Store `epi:"store"`
}

// Output reports what was published and which lineages had no data.
type Output struct {
	Lineages []string `cty:"lineages"`
	Keys     []string `cty:"keys"`
	NoData   []string `cty:"no_data"`
}

// OnRunStrainPrevalence lists the lineages seen in a country over the
// trailing window, then publishes a smoothed prevalence series for each.
func OnRunStrainPrevalence(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	alpha3, err := resolveAlpha3(input.Country)
	if err != nil {
		return nil, err
	}

	client := outbreak.NewClient(input.BaseURL, 2*time.Minute)
	defer client.Close()

	counts, err := client.AllLineages(ctx, alpha3, input.NDays)
	if err != nil {
		return nil, err
	}
	lineages := outbreak.LineageNames(counts)
	if input.LineageLimit > 0 && len(lineages) > input.LineageLimit {
		lineages = lineages[:input.LineageLimit]
	}
	logger.Info("Lineages discovered.", "country", alpha3, "count", len(lineages))

	today := time.Now().UTC()
	out := &Output{Lineages: lineages}
	for _, lineage := range lineages {
		points, err := client.PrevalenceByLocation(ctx, alpha3, lineage)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			out.NoData = append(out.NoData, lineage)
			continue
		}

		smoothed, err := outbreak.Smooth(points, input.Sigma)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := outbreak.WriteCSV(&buf, smoothed, input.Sigma, ""); err != nil {
			return nil, err
		}

		key := s3store.VariantKey(input.Folder, today, lineage, alpha3, true)
		if err := deps.Store.Put(ctx, key, buf.Bytes()); err != nil {
			return nil, err
		}
		out.Keys = append(out.Keys, key)
	}

	return out, nil
}

// resolveAlpha3 accepts either alpha-2 or alpha-3 country codes.
func resolveAlpha3(country string) (string, error) {
	if len(country) == 3 {
		return country, nil
	}
	return geo.NewResolver().Alpha3(country)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunStrainPrevalence", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunStrainPrevalence,
	})
}
