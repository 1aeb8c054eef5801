package population

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	table := `CountryName,CountryCode,Population
United States,USA,331000000
Germany,DEU,83000000
Germany,DEU,82000000
`
	out, err := ParseCSV(strings.NewReader(table))
	require.NoError(t, err)
	assert.Equal(t, 331000000.0, out["USA"])
	// Duplicate rows keep the largest value.
	assert.Equal(t, 83000000.0, out["DEU"])
}

func TestParseCSV_MissingColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)
}

func TestLoadFile_FromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "population.csv")
	require.NoError(t, os.WriteFile(path, []byte("CountryCode,Population\nUSA,331000000\n"), 0o600))

	t.Setenv(EnvDataFile, path)
	out, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 331000000.0, out["USA"])
}

func TestLoadFile_Unset(t *testing.T) {
	t.Setenv(EnvDataFile, "")
	_, err := LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvDataFile)
}
