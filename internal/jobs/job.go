/*
Package jobs runs the rule engine over streams of job inputs. One job is
one URL plus optional context; the pipeline fans jobs out to a fixed pool
of workers and collects results back in exact input order.
*/
package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urlwash/urlwash/internal/types"
)

// Config is one parsed job input: the URL to clean plus optional per-job
// context.
type Config struct {
	URL     string            `json:"url"`
	Context *types.JobContext `json:"context,omitempty"`
}

// ParseConfig parses a job input line. A line starting with "{" is a full
// JSON config; anything else is a bare URL.
func ParseConfig(raw string) (*Config, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty job input")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return &Config{URL: trimmed}, nil
	}
	var cfg Config
	if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("job config has no url")
	}
	return &cfg, nil
}

// MakeJobError means the input never became a runnable job: the line was
// unparseable or the URL invalid.
type MakeJobError struct {
	Err error
}

func (e *MakeJobError) Error() string { return fmt.Sprintf("failed to make job: %v", e.Err) }
func (e *MakeJobError) Unwrap() error { return e.Err }

// DoJobError means a runnable job failed during rule application.
type DoJobError struct {
	Err error
}

func (e *DoJobError) Error() string { return fmt.Sprintf("failed to do job: %v", e.Err) }
func (e *DoJobError) Unwrap() error { return e.Err }

// Outcome is the result of one job. Exactly one of URL and Err is
// meaningful.
type Outcome struct {
	JobID types.JobID
	Input string
	URL   string
	Err   error
}

// ExitCode maps a run's ok/err counts onto the process tri-state: 0 when
// nothing failed, 1 when nothing succeeded, 2 when mixed.
func ExitCode(ok, failed int) int {
	switch {
	case failed == 0:
		return 0
	case ok == 0:
		return 1
	default:
		return 2
	}
}
