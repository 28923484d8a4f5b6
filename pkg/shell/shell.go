package shell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds ordinary command execution.
	DefaultTimeout = 60 * time.Second
	// MaxOutput bounds the captured output folded into result strings.
	MaxOutput = 4000
)

// Runner executes one command line at a time, synchronously, with a bounded
// wall-clock timeout and bounded captured output. Failures are never
// returned as errors: they are formatted into the result string so the task
// loop can feed them back to the remote actor.
type Runner struct {
	Timeout   time.Duration
	MaxOutput int
}

// NewRunner returns a Runner with default limits.
func NewRunner() *Runner {
	return &Runner{
		Timeout:   DefaultTimeout,
		MaxOutput: MaxOutput,
	}
}

// Run executes cmdLine via `sh -c` in dir, waiting for completion or the
// timeout. On success it returns trimmed combined output; on failure or
// timeout it returns a string embedding the error and whatever output was
// captured. Pass timeout <= 0 to use the Runner default.
func (r *Runner) Run(ctx context.Context, cmdLine, dir string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = r.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdLine)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return r.truncate(fmt.Sprintf("error: command timed out after %s: %s", timeout, output))
		}
		return r.truncate(fmt.Sprintf("error: %v: %s", err, output))
	}
	return r.truncate(output)
}

func (r *Runner) truncate(s string) string {
	max := r.MaxOutput
	if max <= 0 {
		max = MaxOutput
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}
