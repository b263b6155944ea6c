package requests

import "fmt"

// ConfigError reports a job file or template problem that aborts the run before any
// request is sent. Index is the zero-based template position, or -1 for file level errors.
type ConfigError struct {
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("job template %d: %v", e.Index, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
