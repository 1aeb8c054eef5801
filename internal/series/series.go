// Package series provides the numeric primitives applied to daily
// case and death counts before publication: Gaussian smoothing, first
// differences and trailing moving averages.
package series

import (
	"fmt"
	"math"
)

// Gaussian smooths a series with a Gaussian kernel of the given standard
// deviation. The kernel is truncated at four standard deviations and the
// series is reflected at both boundaries, so the output has the same length
// as the input.
func Gaussian(values []float64, sigma float64) ([]float64, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %v", sigma)
	}
	if len(values) == 0 {
		return nil, nil
	}

	radius := int(4.0*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i) * float64(i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out := make([]float64, len(values))
	for i := range values {
		var acc float64
		for k := -radius; k <= radius; k++ {
			acc += kernel[k+radius] * values[reflectIndex(i+k, len(values))]
		}
		out[i] = acc
	}
	return out, nil
}

// reflectIndex maps an out-of-range index back into [0, n) by mirroring the
// series at its edges without repeating the edge sample's neighbor pattern
// (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i = ((i % period) + period) % period
	if i >= n {
		return period - i - 1
	}
	return i
}

// Diff returns the first difference of the series. The first element, which
// has no predecessor, is NaN; callers that want zero apply FillZero.
func Diff(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	out[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// RollingMean returns the trailing moving average over the given window. The
// first window-1 elements, where a full window is not yet available, are NaN.
func RollingMean(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	if len(values) == 0 {
		return nil, nil
	}

	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// FillZero replaces NaN entries with zero, in place, and returns the slice.
func FillZero(values []float64) []float64 {
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = 0
		}
	}
	return values
}

// ClampNonNegative replaces negative entries with zero, in place, and returns
// the slice. Daily counts go negative when an upstream source revises its
// cumulative totals downward.
func ClampNonNegative(values []float64) []float64 {
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
	return values
}
