package oxford

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `CountryName,CountryCode,RegionName,RegionCode,Jurisdiction,Date,ConfirmedCases,ConfirmedDeaths
United States,USA,,,NAT_TOTAL,20210101,100,10
United States,USA,,,NAT_TOTAL,20210102,150,12
United States,USA,,,NAT_TOTAL,20210103,210,15
United States,USA,New York,US_NY,STATE_TOTAL,20210101,40,4
United States,USA,New York,US_NY,STATE_TOTAL,20210102,,5
United States,USA,New York,US_NY,STATE_TOTAL,20210103,70,7
Germany,DEU,,,NAT_TOTAL,20210102,50,1
Germany,DEU,,,NAT_TOTAL,20210101,30,0
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 8)

	first := records[0]
	assert.Equal(t, "USA", first.CountryCode)
	assert.Equal(t, "NAT_TOTAL", first.Jurisdiction)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 100.0, first.ConfirmedCases)

	// Empty cells parse as NaN.
	assert.True(t, records[4].ConfirmedCases != records[4].ConfirmedCases)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("CountryCode,Date\nUSA,20210101\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConfirmedCases")
}

func TestParseCSV_BadDate(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("CountryCode,Date,ConfirmedCases,ConfirmedDeaths\nUSA,2021-01-01,1,0\n"))
	require.Error(t, err)
}

func TestSplitJurisdiction(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	national, states := SplitJurisdiction(records)
	assert.Len(t, national, 5)
	assert.Len(t, states, 3)
	for _, rec := range states {
		assert.Equal(t, "US_NY", rec.RegionCode)
	}
}

func TestGroupNational_SortsByDate(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	national, _ := SplitJurisdiction(records)

	groups := GroupNational(national)
	require.Len(t, groups, 2)

	germany := groups["DEU"]
	require.Len(t, germany, 2)
	assert.True(t, germany[0].Date.Before(germany[1].Date))
	assert.Equal(t, 30.0, germany[0].ConfirmedCases)
}

func TestSmoothCasesDeaths(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	national, _ := SplitJurisdiction(records)

	group := GroupNational(national)["USA"]
	require.NoError(t, SmoothCasesDeaths(group, DefaultSigma))

	assert.Equal(t, 0.0, group[0].DailyCases)
	assert.Equal(t, 50.0, group[1].DailyCases)
	assert.Equal(t, 60.0, group[2].DailyCases)
	assert.Equal(t, 2.0, group[1].DailyDeaths)
	for _, rec := range group {
		assert.Greater(t, rec.SmoothDailyCases, 0.0)
	}
}

func TestSmoothCasesDeaths_MissingCellsBecomeZeroDaily(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, states := SplitJurisdiction(records)

	group := GroupStates(states)["USA/US_NY"]
	require.Len(t, group, 3)
	require.NoError(t, SmoothCasesDeaths(group, DefaultSigma))

	// Diffs touching the missing cell collapse to zero.
	assert.Equal(t, 0.0, group[1].DailyCases)
	assert.Equal(t, 0.0, group[2].DailyCases)
}

func TestSmoothCumulative(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, states := SplitJurisdiction(records)

	group := GroupStates(states)["USA/US_NY"]
	require.NoError(t, SmoothCumulative(group, DefaultSigma))
	for _, rec := range group {
		assert.Greater(t, rec.SmoothCases, 0.0)
	}
}

func TestFilterRegions(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	filtered := FilterRegions(records, []string{"US_NY"})
	assert.Len(t, filtered, 3)
	assert.Empty(t, FilterRegions(records, []string{"US_CA"}))
}

func TestWriteDailyCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	national, _ := SplitJurisdiction(records)
	groups := GroupNational(national)
	for _, g := range groups {
		require.NoError(t, SmoothCasesDeaths(g, 7))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDailyCSV(&buf, groups, 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 6, len(lines))
	assert.Contains(t, lines[0], "SmoothDailyCases7")
	assert.Contains(t, lines[0], "SmoothDailyDeaths7")
	// Groups come out in deterministic key order.
	assert.Contains(t, lines[1], "DEU")
}

func TestWriteStatesCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, states := SplitJurisdiction(records)
	groups := GroupStates(states)
	for _, g := range groups {
		require.NoError(t, SmoothCumulative(g, 7))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatesCSV(&buf, groups, 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 4, len(lines))
	assert.Contains(t, lines[0], "Smooth7ConfirmedCases")
	// The missing cases cell round-trips as an empty field.
	assert.Contains(t, lines[2], ",,")
}
