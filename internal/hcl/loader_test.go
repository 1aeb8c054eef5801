package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeHCLFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoad_UnifiedModel(t *testing.T) {
	t.Parallel()

	dir := writeHCLFiles(t, map[string]string{
		"modules/fetch.hcl": `
			runner "http_fetch" {
			  description = "Fetches a URL."
			  lifecycle { on_run = "OnRunHTTPFetch" }

			  input "url" {
			    type = string
			  }
			  input "timeout" {
			    type    = string
			    default = "120s"
			  }

			  output "body" {
			    type = string
			  }
			}
		`,
		"pipeline/main.hcl": `
			schedule = "0 1 * * *"

			step "http_fetch" "oxford" {
			  arguments {
			    url = "https://example.com/data.csv"
			  }
			}
		`,
	})

	model, converter, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, converter)

	assert.Equal(t, "0 1 * * *", model.Pipeline.Schedule)
	require.Len(t, model.Pipeline.Steps, 1)
	step := model.Pipeline.Steps[0]
	assert.Equal(t, "http_fetch", step.RunnerType)
	assert.Equal(t, "oxford", step.Name)
	require.Contains(t, step.Arguments, "url")

	def, ok := model.Runners["http_fetch"]
	require.True(t, ok)
	require.NotNil(t, def.Lifecycle)
	assert.Equal(t, "OnRunHTTPFetch", def.Lifecycle.OnRun)

	urlInput := def.Inputs["url"]
	require.NotNil(t, urlInput)
	assert.Equal(t, cty.String, urlInput.Type)
	assert.False(t, urlInput.Optional)
	assert.Nil(t, urlInput.Default)

	timeoutInput := def.Inputs["timeout"]
	require.NotNil(t, timeoutInput)
	assert.True(t, timeoutInput.Optional)
	require.NotNil(t, timeoutInput.Default)
	assert.Equal(t, "120s", timeoutInput.Default.AsString())
}

func TestLoad_ConflictingSchedules(t *testing.T) {
	t.Parallel()

	dir := writeHCLFiles(t, map[string]string{
		"a.hcl": `schedule = "0 1 * * *"`,
		"b.hcl": `schedule = "30 2 * * *"`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting schedule")
}

func TestLoad_InvalidHCLRejected(t *testing.T) {
	t.Parallel()

	dir := writeHCLFiles(t, map[string]string{
		"broken.hcl": `step "x" {`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
}

func TestLoad_CollectionTypes(t *testing.T) {
	t.Parallel()

	dir := writeHCLFiles(t, map[string]string{
		"mod.hcl": `
			runner "world_strains" {
			  lifecycle { on_run = "OnRunWorldStrains" }
			  input "countries" {
			    type = list(string)
			  }
			}
		`,
	})

	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	def := model.Runners["world_strains"]
	require.NotNil(t, def)
	assert.Equal(t, cty.List(cty.String), def.Inputs["countries"].Type)
}

func TestLoad_AssetDefinition(t *testing.T) {
	t.Parallel()

	dir := writeHCLFiles(t, map[string]string{
		"mod.hcl": `
			asset "s3_client" {
			  lifecycle {
			    create  = "CreateS3Client"
			    destroy = "DestroyS3Client"
			  }
			  input "region" {
			    type    = string
			    default = "us-east-1"
			  }
			}
		`,
	})

	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	def := model.Assets["s3_client"]
	require.NotNil(t, def)
	require.NotNil(t, def.Lifecycle)
	assert.Equal(t, "CreateS3Client", def.Lifecycle.Create)
	assert.Equal(t, "DestroyS3Client", def.Lifecycle.Destroy)
	assert.True(t, def.Inputs["region"].Optional)
}
