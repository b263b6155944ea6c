// Package pool runs jobs across a bounded set of workers and collects one result per job.
//
// Two strategies are provided: GoroutineStrategy shares memory between workers, while
// ProcessStrategy runs each worker as a separate OS process fed over stdin/stdout. Both
// give the same guarantees: at most N jobs in flight, exactly one Result per Job, and a
// full drain before Run returns.
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/metrics"
	"github.com/PeladoCollado/stress/types"
)

// JobExecutor performs one job. Implementations should not panic; the pool recovers if
// they do.
type JobExecutor interface {
	Execute(ctx context.Context, job types.Job) types.Result
}

type JobExecutorFunc func(ctx context.Context, job types.Job) types.Result

func (f JobExecutorFunc) Execute(ctx context.Context, job types.Job) types.Result {
	return f(ctx, job)
}

// Strategy executes jobs with at most workers in flight, sending exactly one Result per
// job on results before returning. An error may only be returned if the strategy could
// not start, in which case no result has been sent.
type Strategy interface {
	Run(ctx context.Context, jobs []types.Job, workers int, results chan<- types.Result) error
}

type Pool struct {
	strategy Strategy
	workers  int
	metrics  metrics.MetricsCollector
	log      logger.Interface
}

func New(strategy Strategy, workers int, collector metrics.MetricsCollector, log logger.Interface) (*Pool, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", workers)
	}
	if collector == nil {
		collector = metrics.NewNopCollector()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pool{strategy: strategy, workers: workers, metrics: collector, log: log}, nil
}

// Run blocks until every job has produced a result. Results arrive in completion order.
func (p *Pool) Run(ctx context.Context, jobs []types.Job) ([]types.Result, error) {
	p.metrics.RecordJobsPlanned(len(jobs))
	p.log.Info("starting", "jobs", len(jobs), "workers", p.workers)
	start := time.Now()

	results := make(chan types.Result, p.workers)
	strategyErr := make(chan error, 1)
	go func() {
		defer close(results)
		strategyErr <- p.strategy.Run(ctx, jobs, p.workers, results)
	}()

	collected := make([]types.Result, 0, len(jobs))
	for result := range results {
		metrics.Record(p.metrics, result)
		collected = append(collected, result)
	}
	if err := <-strategyErr; err != nil {
		return nil, err
	}
	p.log.Info("done", "results", len(collected), "elapsed", time.Since(start))
	if len(collected) != len(jobs) {
		return collected, fmt.Errorf("collected %d results for %d jobs", len(collected), len(jobs))
	}
	return collected, nil
}

func safeExecute(ctx context.Context, executor JobExecutor, job types.Job) (result types.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = types.UnexpectedFailure(fmt.Sprintf("panic: %v", r))
		}
	}()
	return executor.Execute(ctx, job)
}

func boundedWorkers(workers int, jobs int) int {
	if workers > jobs {
		return jobs
	}
	return workers
}
