package pool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/PeladoCollado/stress/types"
)

// ExecutorFactory builds the executor a worker process uses for a given settings value.
type ExecutorFactory func(settings *types.Settings) JobExecutor

// ServeWorker is the child side of ProcessStrategy. It executes jobs read from r one at a
// time and writes each result to w, returning nil once r is exhausted.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer, factory ExecutorFactory) error {
	decoder := json.NewDecoder(bufio.NewReader(r))
	encoder := json.NewEncoder(w)

	var settings *types.Settings
	var executor JobExecutor
	for {
		var request workerRequest
		if err := decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode job: %w", err)
		}
		if request.Settings != nil || executor == nil {
			settings = receivedSettings(request.Settings)
			executor = factory(settings)
		}
		if request.Job == nil {
			continue
		}

		result := safeExecute(ctx, executor, request.Job.toJob(settings))
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
}

func receivedSettings(settings *types.Settings) *types.Settings {
	if settings == nil {
		defaults := types.DefaultSettings()
		return &defaults
	}
	copied := *settings
	return &copied
}
