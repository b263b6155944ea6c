package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/PeladoCollado/stress/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	values := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	cases := map[float64]int{50: 5, 90: 9, 95: 10, 99: 10, 100: 10, 0: 1, 10: 1}
	for percent, expected := range cases {
		got, ok := Percentile(values, percent)
		require.True(t, ok)
		assert.Equal(t, expected, got, "P%v", percent)
	}

	_, ok := Percentile([]int{}, 50)
	assert.False(t, ok)
}

func TestSummarizeAllSuccessWithZeroLatency(t *testing.T) {
	results := make([]types.Result, 100)
	for i := range results {
		results[i] = types.Completed(200, 0)
	}

	summary := Summarize(results)
	assert.Equal(t, 100, summary.Total)
	require.Len(t, summary.Histogram, 1)
	assert.Equal(t, StatusCount{Status: "200", Count: 100, Percent: 100}, summary.Histogram[0])

	latency := summary.Latency
	require.True(t, latency.Valid)
	for _, d := range []time.Duration{latency.Min, latency.Max, latency.Mean, latency.P50, latency.P90, latency.P95, latency.P99} {
		assert.Zero(t, d)
	}
}

func TestSummarizeAllConnectionFailures(t *testing.T) {
	results := make([]types.Result, 5)
	for i := range results {
		results[i] = types.ConnectionFailure("connection refused")
	}

	summary := Summarize(results)
	require.Len(t, summary.Histogram, 1)
	assert.Equal(t, "connection refused", summary.Histogram[0].Status)
	assert.Equal(t, 5, summary.Histogram[0].Count)
	assert.False(t, summary.Latency.Valid)
	assert.Zero(t, summary.Latency.Count)
}

func TestSummarizeMixedExcludesFailuresFromLatency(t *testing.T) {
	var results []types.Result
	for i := 1; i <= 7; i++ {
		results = append(results, types.Completed(200, time.Duration(i)*time.Second))
	}
	for i := 0; i < 3; i++ {
		results = append(results, types.ConnectionFailure("timeout"))
	}

	summary := Summarize(results)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 7, summary.Count("200"))
	assert.Equal(t, 3, summary.Count("timeout"))
	assert.InDelta(t, 70.0, summary.Histogram[0].Percent, 0.001)
	assert.InDelta(t, 30.0, summary.Histogram[1].Percent, 0.001)

	latency := summary.Latency
	require.True(t, latency.Valid)
	assert.Equal(t, 7, latency.Count)
	assert.Equal(t, time.Second, latency.Min)
	assert.Equal(t, 7*time.Second, latency.Max)
	assert.Equal(t, 4*time.Second, latency.Mean)
	assert.Equal(t, 4*time.Second, latency.P50)
	assert.Equal(t, 7*time.Second, latency.P90)
	assert.Equal(t, 7*time.Second, latency.P99)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	var results []types.Result
	for i := 0; i < 40; i++ {
		results = append(results, types.Completed(200+(i%3)*100, time.Duration(i)*time.Millisecond))
	}
	results = append(results, types.ConnectionFailure("dns: nowhere.invalid"))
	expected := Summarize(results)

	shuffled := append([]types.Result(nil), results...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, expected, Summarize(shuffled))
}

func TestSummarizeKeepsStatusOfUnexpectedFailure(t *testing.T) {
	summary := Summarize([]types.Result{{
		Outcome:    types.OutcomeUnexpectedFailure,
		StatusCode: 200,
		Error:      "unexpected EOF",
		Elapsed:    time.Second,
		HasElapsed: true,
	}})
	assert.Equal(t, 1, summary.Count("200"))
	assert.True(t, summary.Latency.Valid)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Histogram)
	assert.False(t, summary.Latency.Valid)
}
