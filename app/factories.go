package app

import (
	"fmt"
	"strconv"

	"github.com/PeladoCollado/stress/executor/pool"
	"github.com/PeladoCollado/stress/executor/worker"
	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/types"
)

type StrategyFactory interface {
	NewStrategy(cfg Config, log logger.Interface) (pool.Strategy, error)
}

type StrategyFactoryFunc func(cfg Config, log logger.Interface) (pool.Strategy, error)

func (f StrategyFactoryFunc) NewStrategy(cfg Config, log logger.Interface) (pool.Strategy, error) {
	return f(cfg, log)
}

func NewBuiltInStrategy(cfg Config, log logger.Interface) (pool.Strategy, error) {
	switch cfg.Mode {
	case ModeThreads:
		transport := worker.NewHTTPTransport(cfg.Workers, log)
		return pool.NewGoroutineStrategy(worker.NewExecutor(transport, log)), nil
	case ModeProcesses:
		strategy := pool.NewProcessStrategy(log)
		strategy.Args = workerArgs(cfg)
		return strategy, nil
	default:
		return nil, fmt.Errorf("unsupported mode %q", cfg.Mode)
	}
}

// WorkerExecutorFactory builds the executor used inside a worker process. Each process
// handles a single request at a time, so its transport keeps one idle connection.
func WorkerExecutorFactory(log logger.Interface) pool.ExecutorFactory {
	return func(*types.Settings) pool.JobExecutor {
		return worker.NewExecutor(worker.NewHTTPTransport(1, log), log)
	}
}

// workerArgs forwards the logging flags to worker processes.
func workerArgs(cfg Config) []string {
	return []string{
		"--log-level=" + cfg.LogLevel,
		"--log-dev=" + strconv.FormatBool(cfg.LogDevelopment),
	}
}

func strategyFactoryOrDefault(factory StrategyFactory) StrategyFactory {
	if factory != nil {
		return factory
	}
	return StrategyFactoryFunc(NewBuiltInStrategy)
}
