package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PeladoCollado/stress/types"
)

// Expander turns job templates into the flat job sequence dispatched by the pool.
type Expander struct {
	// Shuffle applies a uniform random permutation to the expanded jobs.
	Shuffle bool
	// Seed for the shuffle. Zero seeds from the clock.
	Seed int64
	// ReadFile loads file backed bodies. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

func NewExpander(shuffle bool, seed int64) *Expander {
	return &Expander{Shuffle: shuffle, Seed: seed, ReadFile: os.ReadFile}
}

type resolvedTemplate struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
	count   int
}

// Expand resolves every template before emitting a single job, so a bad template fails
// the whole expansion. Repetitions share one header map and one body slice.
func (e *Expander) Expand(templates []types.JobTemplate, settings *types.Settings) ([]types.Job, error) {
	if settings == nil {
		return nil, errors.New("settings are required")
	}
	resolved := make([]resolvedTemplate, 0, len(templates))
	total := 0
	for idx, template := range templates {
		r, err := e.resolve(template)
		if err != nil {
			return nil, &ConfigError{Index: idx, Err: err}
		}
		resolved = append(resolved, r)
		total += r.count
	}

	jobs := make([]types.Job, 0, total)
	for _, r := range resolved {
		for i := 0; i < r.count; i++ {
			jobs = append(jobs, types.Job{
				Method:   r.method,
				URL:      r.url,
				Headers:  r.headers,
				Body:     r.body,
				Settings: settings,
			})
		}
	}

	if e.Shuffle {
		e.rng().Shuffle(len(jobs), func(i, j int) {
			jobs[i], jobs[j] = jobs[j], jobs[i]
		})
	}
	return jobs, nil
}

func (e *Expander) rng() *rand.Rand {
	seed := e.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (e *Expander) resolve(template types.JobTemplate) (resolvedTemplate, error) {
	if strings.TrimSpace(template.URL) == "" {
		return resolvedTemplate{}, errors.New("url is required")
	}
	parsed, err := url.Parse(template.URL)
	if err != nil {
		return resolvedTemplate{}, fmt.Errorf("invalid url %q: %w", template.URL, err)
	}
	if !parsed.IsAbs() {
		return resolvedTemplate{}, fmt.Errorf("url must be absolute: %s", template.URL)
	}

	count := 1
	if template.Count != nil {
		count = *template.Count
		if count < 1 {
			return resolvedTemplate{}, fmt.Errorf("count must be >= 1, got %d", count)
		}
	}

	method := strings.ToUpper(strings.TrimSpace(template.Method))
	if method == "" {
		method = http.MethodGet
	}

	body, err := e.resolveBody(template)
	if err != nil {
		return resolvedTemplate{}, err
	}

	return resolvedTemplate{
		method:  method,
		url:     template.URL,
		headers: template.Headers,
		body:    body,
		count:   count,
	}, nil
}

func (e *Expander) resolveBody(template types.JobTemplate) ([]byte, error) {
	if template.Filename != "" {
		readFile := e.ReadFile
		if readFile == nil {
			readFile = os.ReadFile
		}
		data, err := readFile(template.Filename)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		return data, nil
	}

	switch data := template.Data.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(data), nil
	case []byte:
		return data, nil
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode body as json: %w", err)
		}
		return encoded, nil
	}
}
