package types

import (
	"strconv"
	"time"
)

// JobTemplate is one entry of a job file. Count is a pointer so an explicit 0 can be
// told apart from an absent count.
type JobTemplate struct {
	Method   string            `json:"method" yaml:"method"`
	URL      string            `json:"url" yaml:"url"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
	Data     any               `json:"data" yaml:"data"`
	Filename string            `json:"filename" yaml:"filename"`
	Count    *int              `json:"count" yaml:"count"`
}

type OutputMode string

const (
	OutputNone OutputMode = "none"
	OutputHead OutputMode = "head"
	OutputFull OutputMode = "full"
)

// Settings are the run-wide request options. They are never mutated once a run starts.
type Settings struct {
	ReadTimeout time.Duration `json:"readTimeout"`
	ParseJSON   bool          `json:"parseJson"`
	JSONPath    string        `json:"jsonPath"`
	Output      OutputMode    `json:"output"`
	HeadBytes   int           `json:"headBytes"`
}

const (
	DefaultReadTimeout = 20 * time.Second
	DefaultJSONPath    = "hits.total"
	DefaultHeadBytes   = 200
)

func DefaultSettings() Settings {
	return Settings{
		ReadTimeout: DefaultReadTimeout,
		JSONPath:    DefaultJSONPath,
		Output:      OutputNone,
		HeadBytes:   DefaultHeadBytes,
	}
}

// Job is one concrete request. Headers and Body are shared between repetitions of the
// same template and must be treated as read-only.
type Job struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Settings *Settings
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeConnectionFailure
	OutcomeUnexpectedFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeConnectionFailure:
		return "connection-failure"
	case OutcomeUnexpectedFailure:
		return "unexpected-failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single Job. Elapsed is only meaningful when HasElapsed is set.
type Result struct {
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"statusCode,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	HasElapsed bool          `json:"hasElapsed"`
}

// Status is the histogram key of the result: the HTTP status code when one was observed,
// otherwise the classified error label.
func (r Result) Status() string {
	if r.StatusCode > 0 {
		return strconv.Itoa(r.StatusCode)
	}
	if r.Error == "" {
		return "unknown error"
	}
	return r.Error
}

func (r Result) Duration() (time.Duration, bool) {
	return r.Elapsed, r.HasElapsed
}

func Completed(statusCode int, elapsed time.Duration) Result {
	return Result{Outcome: OutcomeSuccess, StatusCode: statusCode, Elapsed: elapsed, HasElapsed: true}
}

func ConnectionFailure(label string) Result {
	return Result{Outcome: OutcomeConnectionFailure, Error: label}
}

func UnexpectedFailure(label string) Result {
	return Result{Outcome: OutcomeUnexpectedFailure, Error: label}
}
