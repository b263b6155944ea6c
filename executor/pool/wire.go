package pool

import "github.com/PeladoCollado/stress/types"

// workerRequest is one line sent to a worker process. Settings is only present when it
// differs from what the worker last received.
type workerRequest struct {
	Settings *types.Settings `json:"settings,omitempty"`
	Job      *wireJob        `json:"job,omitempty"`
}

type wireJob struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

func toWire(job types.Job) *wireJob {
	return &wireJob{Method: job.Method, URL: job.URL, Headers: job.Headers, Body: job.Body}
}

func (w *wireJob) toJob(settings *types.Settings) types.Job {
	return types.Job{Method: w.Method, URL: w.URL, Headers: w.Headers, Body: w.Body, Settings: settings}
}
