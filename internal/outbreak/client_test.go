package outbreak

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrevalenceByLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genomics/prevalence-by-location", r.URL.Path)
		assert.Equal(t, "USA", r.URL.Query().Get("location_id"))
		assert.Equal(t, "B.1.1.7", r.URL.Query().Get("pangolin_lineage"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"results":[
			{"date":"2021-03-02","total_count":200,"lineage_count":40,"proportion":0.2},
			{"date":"2021-03-01","total_count":100,"lineage_count":10,"proportion":0.1}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	defer client.Close()

	points, err := client.PrevalenceByLocation(context.Background(), "USA", "B.1.1.7")
	require.NoError(t, err)
	require.Len(t, points, 2)
	// Results come back sorted by date.
	assert.Equal(t, "2021-03-01", points[0].Date)
	assert.Equal(t, 0.1, points[0].Prevalence)
	assert.Equal(t, 40, points[1].LineageCount)
}

func TestPrevalenceByLocation_Unsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"results":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	defer client.Close()

	_, err := client.PrevalenceByLocation(context.Background(), "USA", "B.1.1.7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not successful")
}

func TestPrevalenceByLocation_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	defer client.Close()

	_, err := client.PrevalenceByLocation(context.Background(), "USA", "B.1.1.7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAllLineages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genomics/prevalence-by-location-all-lineages", r.URL.Path)
		assert.Equal(t, "365", r.URL.Query().Get("ndays"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"results":[
			{"date":"2021-03-01","lineage":"b.1.1.7","lineage_count":10,"total_count":100},
			{"date":"2021-03-02","lineage":"b.1.1.7","lineage_count":12,"total_count":110},
			{"date":"2021-03-01","lineage":"other","lineage_count":90,"total_count":100},
			{"date":"2021-03-01","lineage":"p.1","lineage_count":5,"total_count":100}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	defer client.Close()

	counts, err := client.AllLineages(context.Background(), "USA", 365)
	require.NoError(t, err)
	assert.Len(t, counts, 4)

	names := LineageNames(counts)
	assert.Equal(t, []string{"B.1.1.7", "P.1"}, names)
}

func TestLineageNames_Empty(t *testing.T) {
	assert.Empty(t, LineageNames(nil))
}

func TestSmooth(t *testing.T) {
	points := []PrevalencePoint{
		{Date: "2021-03-03", Prevalence: 0.3},
		{Date: "2021-03-01", Prevalence: 0.1},
		{Date: "2021-03-02", Prevalence: 0.2},
	}
	out, err := Smooth(points, 7)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "2021-03-01", out[0].Date)
	for _, p := range out {
		assert.Greater(t, p.Smoothed, 0.0)
		assert.Less(t, p.Smoothed, 0.3)
	}
}

func TestSmooth_Empty(t *testing.T) {
	out, err := Smooth(nil, 7)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestWriteCSV(t *testing.T) {
	points := []SmoothedPoint{
		{PrevalencePoint: PrevalencePoint{Date: "2021-03-01", TotalCount: 100, LineageCount: 10, Prevalence: 0.1}, Smoothed: 0.11},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, points, 7, "NY"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,total_count,lineage_count,prevalence,Smooth7,abbr", lines[0])
	assert.Contains(t, lines[1], ",NY")

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, points, 7, ""))
	assert.NotContains(t, buf.String(), "abbr")
}
