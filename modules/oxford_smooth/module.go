// Package oxford_smooth publishes the full policy tracker dataset with daily
// and smoothed daily series, split into national and state files under a
// date partition.
package oxford_smooth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/oxford"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'oxford_smooth' runner.
type Input struct {
	DatasetURL string  `epi:"dataset_url"`
	Sigma      float64 `epi:"sigma"`
	Folder     string  `epi:"folder"`
}

// Deps declares the resources the runner needs injected.
type Deps struct {
	Client *http.Client   `epi:"client"`
	Store  *s3store.Store `epi:"store"`
}

// Output lists the objects published by the run.
type Output struct {
	Keys []string `cty:"keys"`
}

// OnRunOxfordSmooth fetches the dataset, derives daily counts per
// jurisdiction, smooths them, and uploads national and state CSVs under
// today's date partition.
func OnRunOxfordSmooth(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
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

	national, states := oxford.SplitJurisdiction(records)
	logger.Info("Dataset split by jurisdiction.", "national_rows", len(national), "state_rows", len(states))

	views := map[string]map[string][]oxford.Record{
		"national": oxford.GroupNational(national),
		"states":   oxford.GroupStates(states),
	}

	today := time.Now().UTC()
	var keys []string
	for _, name := range []string{"national", "states"} {
		groups := views[name]
		for _, group := range groups {
			if err := oxford.SmoothCasesDeaths(group, input.Sigma); err != nil {
				return nil, err
			}
		}

		var buf bytes.Buffer
		if err := oxford.WriteDailyCSV(&buf, groups, input.Sigma); err != nil {
			return nil, err
		}

		key := s3store.DateKey(input.Folder, today, name)
		if err := deps.Store.Put(ctx, key, buf.Bytes()); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return &Output{Keys: keys}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunOxfordSmooth", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunOxfordSmooth,
	})
}
