package pool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/types"
	"golang.org/x/sync/errgroup"
)

const WorkerCommand = "worker"

const (
	workerFailedLabel      = "worker process failed"
	workerUnavailableLabel = "worker process unavailable"
)

// ProcessStrategy runs each worker as a child process that executes one job at a time.
// Children receive jobs as JSON lines on stdin and answer with one JSON result per line
// on stdout; their stderr is passed through.
type ProcessStrategy struct {
	// Command is the worker argv. Defaults to this executable with the worker subcommand.
	Command []string
	// Args are appended to Command.
	Args []string
	// Env is appended to the parent environment.
	Env []string
	Log logger.Interface
}

func NewProcessStrategy(log logger.Interface) *ProcessStrategy {
	return &ProcessStrategy{Log: log}
}

func (s *ProcessStrategy) Run(ctx context.Context, jobs []types.Job, workers int, results chan<- types.Result) error {
	workers = boundedWorkers(workers, len(jobs))
	log := s.Log
	if log == nil {
		log = logger.NewNop()
	}

	children := make([]*workerProcess, 0, workers)
	for i := 0; i < workers; i++ {
		child, err := s.start()
		if err != nil {
			for _, started := range children {
				started.kill()
			}
			return fmt.Errorf("start worker process: %w", err)
		}
		children = append(children, child)
	}

	work := make(chan types.Job)
	live := &atomic.Int32{}
	live.Store(int32(len(children)))
	var g errgroup.Group
	for slot, child := range children {
		g.Go(func() error {
			return s.serveSlot(ctx, log.With("slot", slot), child, live, work, results)
		})
	}

	for _, job := range jobs {
		work <- job
	}
	close(work)
	if err := g.Wait(); err != nil {
		log.Warn("Worker process did not shut down cleanly", "error", err)
	}
	return nil
}

// serveSlot feeds one child until the work channel closes. A child that fails mid-job is
// replaced. A slot whose replacement cannot start leaves the queue to the remaining live
// slots; the last one to go answers every job still queued so the pool drains.
func (s *ProcessStrategy) serveSlot(ctx context.Context,
	log logger.Interface,
	child *workerProcess,
	live *atomic.Int32,
	work <-chan types.Job,
	results chan<- types.Result) error {
	for job := range work {
		if child == nil {
			results <- types.UnexpectedFailure(workerUnavailableLabel)
			continue
		}
		result, err := child.execute(job)
		if err == nil {
			results <- result
			continue
		}

		log.Error("Worker process failed while executing job", "url", job.URL, "error", err)
		results <- types.UnexpectedFailure(workerFailedLabel)
		child.kill()
		child = nil
		if ctx.Err() != nil {
			// canceled runs fail the rest of the queue fast
			continue
		}
		replacement, startErr := s.start()
		if startErr == nil {
			child = replacement
			continue
		}
		log.Error("Unable to restart worker process", "error", startErr)
		if live.Add(-1) > 0 {
			return nil
		}
		log.Error("No worker processes left, failing remaining jobs")
	}
	if child == nil {
		return nil
	}
	return child.stop()
}

func (s *ProcessStrategy) command() ([]string, error) {
	argv := s.Command
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, err
		}
		argv = []string{self, WorkerCommand}
	}
	return append(append([]string(nil), argv...), s.Args...), nil
}

func (s *ProcessStrategy) start() (*workerProcess, error) {
	argv, err := s.command()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &workerProcess{
		cmd:     cmd,
		stdin:   stdin,
		encoder: json.NewEncoder(stdin),
		decoder: json.NewDecoder(bufio.NewReader(stdout)),
	}, nil
}

type workerProcess struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	encoder  *json.Encoder
	decoder  *json.Decoder
	settings *types.Settings
}

func (w *workerProcess) execute(job types.Job) (types.Result, error) {
	request := workerRequest{Job: toWire(job)}
	if job.Settings != w.settings {
		request.Settings = job.Settings
	}
	if err := w.encoder.Encode(request); err != nil {
		return types.Result{}, fmt.Errorf("send job: %w", err)
	}
	w.settings = job.Settings

	var result types.Result
	if err := w.decoder.Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return types.Result{}, fmt.Errorf("read result: %w", err)
	}
	return result, nil
}

// stop closes stdin, which the worker reads as the end of its queue, and waits for exit.
func (w *workerProcess) stop() error {
	if err := w.stdin.Close(); err != nil {
		return err
	}
	return w.cmd.Wait()
}

func (w *workerProcess) kill() {
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
}
