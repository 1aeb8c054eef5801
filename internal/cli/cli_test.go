package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PositionalPath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"pipelines/nightly.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "pipelines/nightly.hcl", cfg.PipelinePath)
	assert.Equal(t, "modules", cfg.ModulesPath)
	assert.Equal(t, 10, cfg.WorkerCount)
	assert.False(t, cfg.Daemon)
}

func TestParse_PipelineFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"--pipeline", "a.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "a.hcl", cfg.PipelinePath)

	cfg, _, err = Parse([]string{"-p", "b.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "b.hcl", cfg.PipelinePath)
}

func TestParse_DaemonAndSchedule(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"--daemon", "--schedule", "0 1 * * *", "a.hcl"}, &out)
	require.NoError(t, err)
	assert.True(t, cfg.Daemon)
	assert.Equal(t, "0 1 * * *", cfg.Schedule)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-format", "xml", "a.hcl"}, &out)
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_InvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-level", "loud", "a.hcl"}, &out)
	require.Error(t, err)
}

func TestParse_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("bucket_name=covid-test-bucket\n"), 0o600))
	t.Setenv("bucket_name", "")
	os.Unsetenv("bucket_name")

	var out bytes.Buffer
	_, _, err := Parse([]string{"--env-file", envPath, "a.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "covid-test-bucket", os.Getenv("bucket_name"))
}

func TestParse_MissingEnvFile(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--env-file", "/nonexistent/.env", "a.hcl"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}
