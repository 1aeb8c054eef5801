// Package vaccinations mirrors the Our World in Data vaccination tables into
// object storage under a date partition.
package vaccinations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/owid"
	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'vaccinations' runner.
type Input struct {
	Cadence string `epi:"cadence"`
	Folder  string `epi:"folder"`
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

// OnRunVaccinations downloads each table for the requested cadence and
// uploads it under today's date partition.
func OnRunVaccinations(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	var tables []owid.Table
	switch input.Cadence {
	case "daily":
		tables = owid.DailyTables()
	case "weekly":
		tables = owid.WeeklyTables()
	default:
		return nil, fmt.Errorf("unknown cadence %q, want 'daily' or 'weekly'", input.Cadence)
	}

	folder := input.Folder
	if folder == "" {
		folder = "raw/vaccinations/" + input.Cadence
	}

	today := time.Now().UTC()
	var keys []string
	for _, table := range tables {
		body, err := fetch(ctx, deps.Client, table.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch table %q: %w", table.Name, err)
		}

		key := s3store.DateKey(folder, today, table.Name)
		if err := deps.Store.Put(ctx, key, body); err != nil {
			return nil, err
		}
		keys = append(keys, key)
		logger.Info("Vaccination table mirrored.", "table", table.Name, "key", key)
	}

	return &Output{Keys: keys}, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunVaccinations", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunVaccinations,
	})
}
