// Package cases_deaths builds the risk calculator's US-states dataset:
// cumulative confirmed cases and deaths per state, Gaussian smoothed, and
// published to object storage.
package cases_deaths

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/geo"
	"github.com/epigrid/epigridgo/internal/oxford"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'cases_deaths' runner.
type Input struct {
	DatasetURL string  `epi:"dataset_url"`
	Country    string  `epi:"country"`
	Sigma      float64 `epi:"sigma"`
	Key        string  `epi:"key"`
}

// Deps declares the resources the runner needs injected.
type Deps struct {
	Client *http.Client   `epi:"client"`
	Store  *s3store.Store `epi:"store"`
}

// Output reports the published object and how much data went into it.
type Output struct {
	Key     string `cty:"key"`
	Rows    int    `cty:"rows"`
	Regions int    `cty:"regions"`
}

// OnRunCasesDeaths fetches the policy tracker dataset, keeps the given
// country's state-level rows, smooths each state's cumulative series and
// uploads the result as one CSV.
func OnRunCasesDeaths(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.DatasetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset request: %w", err)
	}
	resp, err := deps.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset fetch returned status %d", resp.StatusCode)
	}

	records, err := oxford.ParseCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset parsed.", "rows", len(records))

	regionCodes, err := geo.NewResolver().RegionCodes(input.Country)
	if err != nil {
		return nil, err
	}

	states := oxford.FilterRegions(records, regionCodes)
	if len(states) == 0 {
		return nil, fmt.Errorf("no state rows found for country %q", input.Country)
	}

	groups := oxford.GroupStates(states)
	for _, group := range groups {
		if err := oxford.SmoothCumulative(group, input.Sigma); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := oxford.WriteStatesCSV(&buf, groups, input.Sigma); err != nil {
		return nil, err
	}

	if err := deps.Store.Put(ctx, input.Key, buf.Bytes()); err != nil {
		return nil, err
	}

	return &Output{Key: input.Key, Rows: len(states), Regions: len(groups)}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunCasesDeaths", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunCasesDeaths,
	})
}
