package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/types"
)

// Executor runs single jobs. Execute never panics and never returns an error: every
// failure is reported as a classified Result.
type Executor struct {
	transport Transport
	log       logger.Interface
}

func NewExecutor(transport Transport, log logger.Interface) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{transport: transport, log: log}
}

func (e *Executor) Execute(ctx context.Context, job types.Job) (result types.Result) {
	defer func() {
		if r := recover(); r != nil {
			label := shorten(fmt.Sprintf("panic: %v", r))
			e.log.Error("Request processing panicked", "url", shortenURL(job.URL), "panic", r)
			if result.StatusCode > 0 {
				result.Outcome = types.OutcomeUnexpectedFailure
				result.Error = label
				return
			}
			result = types.UnexpectedFailure(label)
		}
	}()

	settings := job.Settings
	if settings == nil {
		defaults := types.DefaultSettings()
		settings = &defaults
	}

	method := job.Method
	if method == "" {
		method = http.MethodGet
	}

	requestCtx := ctx
	if settings.ReadTimeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, settings.ReadTimeout)
		defer cancel()
	}

	start := time.Now()
	response, err := e.transport.Do(requestCtx, Request{
		Method:  method,
		URL:     job.URL,
		Headers: job.Headers,
		Body:    job.Body,
	})
	elapsed := time.Since(start)

	if err != nil {
		label := classifyError(err)
		if response.StatusCode == 0 {
			e.log.Error("ERR", "error", label, "url", shortenURL(job.URL))
			return types.ConnectionFailure(label)
		}
		e.log.Warn("Response failed after status was received",
			"status", response.StatusCode,
			"elapsed", elapsed,
			"error", err.Error(),
			"url", shortenURL(job.URL))
		return types.Result{
			Outcome:    types.OutcomeUnexpectedFailure,
			StatusCode: response.StatusCode,
			Error:      label,
			Elapsed:    elapsed,
			HasElapsed: true,
		}
	}

	result = types.Completed(response.StatusCode, elapsed)
	e.logResponse(job.URL, settings, response, elapsed)
	return result
}

func (e *Executor) logResponse(url string, settings *types.Settings, response Response, elapsed time.Duration) {
	fields := []any{
		"status", response.StatusCode,
		"elapsed", fmt.Sprintf("%5.2fs", elapsed.Seconds()),
	}
	if settings.ParseJSON {
		fields = append(fields, "hits", hits(settings, response))
	}
	fields = append(fields, "url", shortenURL(url))

	switch settings.Output {
	case types.OutputFull:
		fields = append(fields, "body", string(response.Body))
	case types.OutputHead:
		fields = append(fields, "body", string(head(response.Body, settings.HeadBytes)))
	}
	e.log.Info("Request completed", fields...)
}

func hits(settings *types.Settings, response Response) string {
	if response.StatusCode >= 300 {
		return "ERR"
	}
	path := settings.JSONPath
	if path == "" {
		path = types.DefaultJSONPath
	}
	return extractField(response.Body, path)
}

func head(body []byte, size int) []byte {
	if size <= 0 {
		size = types.DefaultHeadBytes
	}
	if len(body) <= size {
		return body
	}
	return body[:size]
}
