package outbreak

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/epigrid/epigridgo/internal/series"
)

// SmoothedPoint pairs a prevalence observation with its smoothed value.
type SmoothedPoint struct {
	PrevalencePoint
	Smoothed float64
}

// Smooth sorts the points by date and smooths the prevalence series with a
// Gaussian of the given sigma, treating NaN prevalence as zero.
func Smooth(points []PrevalencePoint, sigma float64) ([]SmoothedPoint, error) {
	if len(points) == 0 {
		return nil, nil
	}

	sorted := make([]PrevalencePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	values := make([]float64, len(sorted))
	for i, p := range sorted {
		if math.IsNaN(p.Prevalence) {
			values[i] = 0
		} else {
			values[i] = p.Prevalence
		}
	}

	smoothed, err := series.Gaussian(values, sigma)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth prevalence: %w", err)
	}

	out := make([]SmoothedPoint, len(sorted))
	for i, p := range sorted {
		out[i] = SmoothedPoint{PrevalencePoint: p, Smoothed: smoothed[i]}
	}
	return out, nil
}

// WriteCSV writes a smoothed prevalence series. The smooth column name
// carries the sigma, e.g. Smooth7. A non-empty abbr adds an abbr column
// identifying the state the series belongs to.
func WriteCSV(w io.Writer, points []SmoothedPoint, sigma float64, abbr string) error {
	writer := csv.NewWriter(w)
	sigmaLabel := strconv.FormatFloat(sigma, 'f', -1, 64)

	header := []string{"date", "total_count", "lineage_count", "prevalence", "Smooth" + sigmaLabel}
	if abbr != "" {
		header = append(header, "abbr")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range points {
		row := []string{
			p.Date,
			strconv.Itoa(p.TotalCount),
			strconv.Itoa(p.LineageCount),
			strconv.FormatFloat(p.Prevalence, 'f', -1, 64),
			strconv.FormatFloat(p.Smoothed, 'f', -1, 64),
		}
		if abbr != "" {
			row = append(row, abbr)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
