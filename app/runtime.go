package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/PeladoCollado/stress/executor/pool"
	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/metrics"
	"github.com/PeladoCollado/stress/report"
	"github.com/PeladoCollado/stress/requests"
	"github.com/PeladoCollado/stress/stats"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RunOptions struct {
	StrategyFactory StrategyFactory

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Out receives the final report. Defaults to stdout.
	Out io.Writer
	Log logger.Interface
}

// Run executes one complete load run and writes its report. Only configuration problems
// are returned; failed requests are part of the report.
func Run(ctx context.Context, cfg Config, opts RunOptions) (stats.Summary, error) {
	cfg = cfg.Normalize()
	if err := ValidateConfig(cfg); err != nil {
		return stats.Summary{}, err
	}

	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("run_id", uuid.NewString())
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	templates, err := requests.LoadTemplates(cfg.JobFile)
	if err != nil {
		return stats.Summary{}, err
	}
	settings := cfg.Settings()
	jobs, err := requests.NewExpander(!cfg.NoShuffle, cfg.Seed).Expand(templates, &settings)
	if err != nil {
		return stats.Summary{}, err
	}

	strategy, err := strategyFactoryOrDefault(opts.StrategyFactory).NewStrategy(cfg, log)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("initialize worker strategy: %w", err)
	}

	registerer, gatherer := opts.Registerer, opts.Gatherer
	if registerer == nil {
		registry := prometheus.NewRegistry()
		registerer, gatherer = registry, registry
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	collector := metrics.NewPrometheusMetricsCollector(registerer)

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, gatherer, log)
		if err != nil {
			return stats.Summary{}, err
		}
		defer stop()
	}

	workerPool, err := pool.New(strategy, cfg.Workers, collector, log)
	if err != nil {
		return stats.Summary{}, err
	}

	log.Info("Starting run", "file", cfg.JobFile, "jobs", len(jobs), "workers", cfg.Workers, "mode", cfg.Mode)
	start := time.Now()
	results, err := workerPool.Run(ctx, jobs)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("run jobs: %w", err)
	}
	wall := time.Since(start)

	summary := stats.Summarize(results)
	if err := report.Render(out, summary, wall); err != nil {
		return summary, fmt.Errorf("write report: %w", err)
	}
	return summary, nil
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, log logger.Interface) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Metrics server failed", "error", err)
		}
	}()
	log.Info("Serving metrics", "addr", listener.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Unable to gracefully shutdown metrics server", "error", err)
		}
	}, nil
}
