package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PeladoCollado/stress/executor/pool"
	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/requests"
	"github.com/prometheus/client_golang/prometheus"
)

const helperEnv = "STRESS_APP_HELPER_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		if err := pool.ServeWorker(context.Background(), os.Stdin, os.Stdout, WorkerExecutorFactory(logger.NewNop())); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func newTarget(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"total":3}}`))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "stress.json")
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	return file
}

func TestRunThreadsProducesReport(t *testing.T) {
	server, hits := newTarget(t)
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.ParseJSON = true
	cfg.JobFile = writeJobFile(t, fmt.Sprintf(`[
		{"url": "%[1]s/search", "count": 7},
		{"url": "%[1]s/missing", "method": "POST", "data": {"q": "x"}, "count": 3}
	]`, server.URL))

	var out bytes.Buffer
	registry := prometheus.NewRegistry()
	summary, err := Run(context.Background(), cfg, RunOptions{Out: &out, Registerer: registry, Gatherer: registry})
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if summary.Total != 10 || hits.Load() != 10 {
		t.Fatalf("expected 10 requests, summary=%d served=%d", summary.Total, hits.Load())
	}
	if summary.Count("200") != 7 || summary.Count("404") != 3 {
		t.Fatalf("unexpected histogram: %+v", summary.Histogram)
	}
	if !summary.Latency.Valid || summary.Latency.Count != 10 {
		t.Fatalf("expected latency over 10 requests, got %+v", summary.Latency)
	}
	if !strings.Contains(out.String(), "total 10 requests") {
		t.Fatalf("expected report in output, got:\n%s", out.String())
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	var planned bool
	for _, family := range families {
		if family.GetName() == "stress_jobs_planned" && family.GetMetric()[0].GetGauge().GetValue() == 10 {
			planned = true
		}
	}
	if !planned {
		t.Fatalf("expected stress_jobs_planned to be 10")
	}
}

func TestRunProcessesProducesReport(t *testing.T) {
	server, hits := newTarget(t)
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Processes = true
	cfg.JobFile = writeJobFile(t, fmt.Sprintf(`{"url": "%s/search", "count": 5}`, server.URL))

	factory := StrategyFactoryFunc(func(cfg Config, log logger.Interface) (pool.Strategy, error) {
		if cfg.Mode != ModeProcesses {
			t.Fatalf("expected processes mode, got %s", cfg.Mode)
		}
		strategy := pool.NewProcessStrategy(log)
		strategy.Command = []string{os.Args[0], "-test.run=^$"}
		strategy.Env = []string{helperEnv + "=1"}
		return strategy, nil
	})

	var out bytes.Buffer
	summary, err := Run(context.Background(), cfg, RunOptions{StrategyFactory: factory, Out: &out})
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if summary.Count("200") != 5 || hits.Load() != 5 {
		t.Fatalf("expected 5 successful requests, histogram=%+v served=%d", summary.Histogram, hits.Load())
	}
}

func TestRunReportsUnreachableTarget(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.JobFile = writeJobFile(t, fmt.Sprintf(`[{"url": "%s/", "count": 3}]`, url))

	var out bytes.Buffer
	summary, err := Run(context.Background(), cfg, RunOptions{Out: &out})
	if err != nil {
		t.Fatalf("per-request failures must not fail the run: %v", err)
	}
	if summary.Count("connection refused") != 3 {
		t.Fatalf("expected 3 connection failures, got %+v", summary.Histogram)
	}
	if summary.Latency.Valid {
		t.Fatalf("expected no latency data")
	}
	if !strings.Contains(out.String(), "no data") {
		t.Fatalf("expected latency sentinel in output, got:\n%s", out.String())
	}
}

func TestRunRejectsInvalidTemplateBeforeSendingAnything(t *testing.T) {
	server, hits := newTarget(t)
	cfg := DefaultConfig()
	cfg.JobFile = writeJobFile(t, fmt.Sprintf(`[{"url": "%s/search"}, {"method": "GET"}]`, server.URL))

	_, err := Run(context.Background(), cfg, RunOptions{Out: &bytes.Buffer{}})
	var configErr *requests.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected config error, got %v", err)
	}
	if configErr.Index != 1 {
		t.Fatalf("expected template index 1, got %d", configErr.Index)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestRunRejectsMissingJobFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JobFile = filepath.Join(t.TempDir(), "absent.json")

	if _, err := Run(context.Background(), cfg, RunOptions{Out: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected missing job file error")
	}
}
