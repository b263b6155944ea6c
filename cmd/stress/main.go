// Command stress expands a job file into HTTP requests, fires them through a bounded
// worker pool and prints a status and latency summary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PeladoCollado/stress/app"
	"github.com/PeladoCollado/stress/executor/pool"
	"github.com/PeladoCollado/stress/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := app.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "stress [job-file]",
		Short:         "Fire a job file of HTTP requests at a target and summarize the results",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()
			return app.ApplyEnvironment(cmd.Flags(), viper.New())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.JobFile = args[0]
			}
			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
			if err != nil {
				return err
			}
			defer logger.Sync(log)

			_, err = app.Run(cmd.Context(), cfg, app.RunOptions{Out: cmd.OutOrStdout(), Log: log})
			return err
		},
	}
	// Persistent so the worker subcommand accepts the logging flags the parent forwards.
	app.BindFlags(cmd.PersistentFlags(), &cfg)
	cmd.AddCommand(newWorkerCommand(&cfg))
	return cmd
}

// newWorkerCommand is the child side of processes mode. It is started by the parent
// process and talks JSON lines over stdin and stdout.
func newWorkerCommand(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:    pool.WorkerCommand,
		Short:  "Execute jobs read from stdin",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
			if err != nil {
				return err
			}
			defer logger.Sync(log)
			log = log.With("worker_pid", os.Getpid())

			return pool.ServeWorker(cmd.Context(), os.Stdin, os.Stdout, app.WorkerExecutorFactory(log))
		},
	}
}
