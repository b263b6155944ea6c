package pool

import (
	"context"
	"sync"

	"github.com/PeladoCollado/stress/types"
)

// GoroutineStrategy runs workers as goroutines sharing the executor and job settings.
type GoroutineStrategy struct {
	Executor JobExecutor
}

func NewGoroutineStrategy(executor JobExecutor) *GoroutineStrategy {
	return &GoroutineStrategy{Executor: executor}
}

func (s *GoroutineStrategy) Run(ctx context.Context, jobs []types.Job, workers int, results chan<- types.Result) error {
	workers = boundedWorkers(workers, len(jobs))
	work := make(chan types.Job)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runJobs(ctx, s.Executor, work, results)
		}()
	}

	// an unbuffered channel hands jobs out in sequence order
	for _, job := range jobs {
		work <- job
	}
	close(work)
	wg.Wait()
	return nil
}

func runJobs(ctx context.Context, executor JobExecutor, work <-chan types.Job, results chan<- types.Result) {
	for job := range work {
		results <- safeExecute(ctx, executor, job)
	}
}
