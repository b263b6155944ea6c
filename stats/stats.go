// Package stats summarizes job results into a status histogram and latency percentiles.
package stats

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/PeladoCollado/stress/types"
)

// StatusCount is one histogram entry.
type StatusCount struct {
	Status  string
	Count   int
	Percent float64
}

// Latency summarizes durations of results that carry one. Valid is false when no result
// had a duration, in which case every other field is zero and meaningless.
type Latency struct {
	Valid bool
	Count int
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

type Summary struct {
	Total     int
	Histogram []StatusCount
	Latency   Latency
}

// Count returns the histogram count for status, or 0.
func (s Summary) Count(status string) int {
	for _, entry := range s.Histogram {
		if entry.Status == status {
			return entry.Count
		}
	}
	return 0
}

// Summarize is a pure function of the multiset of results: their order never matters.
func Summarize(results []types.Result) Summary {
	counts := make(map[string]int)
	durations := make([]time.Duration, 0, len(results))
	for _, result := range results {
		counts[result.Status()]++
		if elapsed, ok := result.Duration(); ok {
			durations = append(durations, elapsed)
		}
	}

	summary := Summary{
		Total:     len(results),
		Histogram: make([]StatusCount, 0, len(counts)),
		Latency:   summarizeLatency(durations),
	}
	for status, count := range counts {
		summary.Histogram = append(summary.Histogram, StatusCount{
			Status:  status,
			Count:   count,
			Percent: float64(count) / float64(len(results)) * 100,
		})
	}
	sort.Slice(summary.Histogram, func(i, j int) bool {
		a, b := summary.Histogram[i], summary.Histogram[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Status < b.Status
	})
	return summary
}

func summarizeLatency(durations []time.Duration) Latency {
	if len(durations) == 0 {
		return Latency{}
	}
	sorted := append([]time.Duration(nil), durations...)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	latency := Latency{
		Valid: true,
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  total / time.Duration(len(sorted)),
	}
	latency.P50, _ = Percentile(sorted, 50)
	latency.P90, _ = Percentile(sorted, 90)
	latency.P95, _ = Percentile(sorted, 95)
	latency.P99, _ = Percentile(sorted, 99)
	return latency
}

// Percentile picks the element at zero-based index ceil(S*p/100)-1 of an ascending slice,
// clamped to the slice bounds. ok is false for an empty slice.
func Percentile[T any](sorted []T, percent float64) (value T, ok bool) {
	if len(sorted) == 0 {
		return value, false
	}
	index := int(math.Ceil(float64(len(sorted))*percent/100)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index], true
}
