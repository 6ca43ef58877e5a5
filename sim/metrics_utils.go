// Percentile and mean helpers shared by the metrics window and the
// adaptive allocator.

package sim

import (
	"math"
	"sort"
)

type IntOrFloat64 interface {
	int | int64 | float64
}

// Percentile calculates the p-th percentile of a data list using the
// nearest-rank method: index ceil(p/100*n)-1 of the sorted data, clamped
// to the valid range. Empty input yields 0. The input slice is not
// modified.
//
// Nearest-rank is intentional: the adaptive boundary estimates and the
// controller thresholds were calibrated against this exact computation,
// so an interpolating quantile would shift A/B attribution.
func Percentile[T IntOrFloat64](data []T, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}
	sorted := make([]T, n)
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	k := int(math.Ceil(p/100.0*float64(n))) - 1
	if k < 0 {
		k = 0
	}
	if k > n-1 {
		k = n - 1
	}
	return float64(sorted[k])
}

// Mean calculates the mean of a data list; empty input yields 0.
func Mean[T IntOrFloat64](data []T) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
