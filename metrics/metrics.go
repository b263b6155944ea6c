package metrics

import (
	"strconv"
	"time"

	"github.com/PeladoCollado/stress/types"
	"github.com/prometheus/client_golang/prometheus"
)

type SuccessEvent struct {
	Status   int
	Duration time.Duration
}

type ErrorEvent struct {
	Status      int
	Outcome     types.Outcome
	ErrMsg      string
	Duration    time.Duration
	HasDuration bool
}

type MetricsCollector interface {
	PostSuccess(event SuccessEvent)
	PostFailure(event ErrorEvent)
	RecordJobsPlanned(count int)
}

// Record routes a job result to the collector. Completed exchanges count as successes
// whatever their status code; the status label keeps them apart.
func Record(c MetricsCollector, result types.Result) {
	if result.Outcome == types.OutcomeSuccess {
		c.PostSuccess(SuccessEvent{Status: result.StatusCode, Duration: result.Elapsed})
		return
	}
	c.PostFailure(ErrorEvent{
		Status:      result.StatusCode,
		Outcome:     result.Outcome,
		ErrMsg:      result.Error,
		Duration:    result.Elapsed,
		HasDuration: result.HasElapsed,
	})
}

func NewPrometheusMetricsCollector(r prometheus.Registerer) *PrometheusMetricsCollector {
	c := &PrometheusMetricsCollector{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "duration",
			Namespace: "stress",
			Help:      "Request duration in milliseconds",
			Buckets:   timeBuckets()}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "responses_total",
			Namespace: "stress",
			Help:      "Results by status code or error label"}, []string{"status"}),
		successCounter: prometheus.NewCounter(prometheus.CounterOpts{Name: "success",
			Namespace: "stress",
			Help:      "Number of completed HTTP exchanges"}),
		failedCounter: prometheus.NewCounter(prometheus.CounterOpts{Name: "failed",
			Namespace: "stress",
			Help:      "Number of failed requests"}),
		jobsPlanned: prometheus.NewGauge(prometheus.GaugeOpts{Name: "jobs_planned",
			Namespace: "stress",
			Help:      "Number of jobs in the current run"}),
	}
	r.MustRegister(c.duration, c.responses, c.successCounter, c.failedCounter, c.jobsPlanned)
	return c
}

func timeBuckets() []float64 {
	bucket := float64(10)
	buckets := make([]float64, 0, 204)
	for i := 0; i < 204; i++ {
		buckets = append(buckets, bucket)
		if bucket < 100 {
			bucket += 5
		} else if bucket < 1000 {
			bucket += 25
		} else if bucket < 10000 {
			bucket += 100
		} else if bucket < 60000 {
			bucket += 1000
		}
	}
	return buckets
}

type PrometheusMetricsCollector struct {
	duration       prometheus.Histogram
	responses      *prometheus.CounterVec
	successCounter prometheus.Counter
	failedCounter  prometheus.Counter
	jobsPlanned    prometheus.Gauge
}

func (b *PrometheusMetricsCollector) PostSuccess(event SuccessEvent) {
	b.duration.Observe(float64(event.Duration.Milliseconds()))
	b.responses.WithLabelValues(strconv.Itoa(event.Status)).Inc()
	b.successCounter.Inc()
}

func (b *PrometheusMetricsCollector) PostFailure(event ErrorEvent) {
	if event.HasDuration {
		b.duration.Observe(float64(event.Duration.Milliseconds()))
	}
	b.responses.WithLabelValues(failureLabel(event)).Inc()
	b.failedCounter.Inc()
}

// classifiedLabels are the error labels kept as label values. Anything else, such as dns
// host names or free-form error text, is folded into its outcome.
var classifiedLabels = map[string]bool{
	"timeout":            true,
	"connection refused": true,
	"connection reset":   true,
	"canceled":           true,
}

func failureLabel(event ErrorEvent) string {
	if event.Status > 0 {
		return strconv.Itoa(event.Status)
	}
	if classifiedLabels[event.ErrMsg] {
		return event.ErrMsg
	}
	return event.Outcome.String()
}

func (b *PrometheusMetricsCollector) RecordJobsPlanned(count int) {
	b.jobsPlanned.Set(float64(count))
}

type nopCollector struct{}

func (nopCollector) PostSuccess(SuccessEvent) {}
func (nopCollector) PostFailure(ErrorEvent)   {}
func (nopCollector) RecordJobsPlanned(int)    {}

func NewNopCollector() MetricsCollector {
	return nopCollector{}
}
