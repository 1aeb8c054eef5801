package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/epigrid/epigridgo/internal/ctxlog"
)

// FetchInput defines the arguments for the 'http_fetch' runner.
type FetchInput struct {
	URL string `epi:"url"`
}

// FetchDeps declares the resources the runner needs injected.
type FetchDeps struct {
	Client *http.Client `epi:"client"`
}

// FetchOutput is the runner's result: the response body and status code.
type FetchOutput struct {
	Status int    `cty:"status"`
	Body   string `cty:"body"`
}

// onRunHttpFetch downloads a URL using the shared client. Non-2xx responses
// fail the step so a bad upstream file never flows further down the pipeline.
func onRunHttpFetch(ctx context.Context, deps *FetchDeps, input *FetchInput) (*FetchOutput, error) {
	logger := ctxlog.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %q: %w", input.URL, err)
	}

	logger.Info("Fetching URL.", "url", input.URL)
	resp, err := deps.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", input.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %q: %w", input.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch of %q returned status %d", input.URL, resp.StatusCode)
	}

	logger.Info("Fetch complete.", "url", input.URL, "status", resp.StatusCode, "bytes", len(body))
	return &FetchOutput{Status: resp.StatusCode, Body: string(body)}, nil
}
