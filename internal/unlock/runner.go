// Package unlock runs the external unlock check and reports its exit status.
package unlock

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Default and bounds for the unlock check timeout.
const (
	DefaultTimeout = 60 * time.Second
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 10 * time.Minute
)

// killGrace bounds how long Run waits for the command's I/O after the
// timeout kills it.
const killGrace = 2 * time.Second

// Result holds the outcome of a single unlock check.
type Result struct {
	// ExitCode is the command's exit status, or -1 when it did not exit
	// normally (launch failure, signal, timeout).
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Err      error
}

// OK reports whether the check succeeded (exit status 0).
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Runner runs the unlock command at a fixed path with no arguments.
type Runner struct {
	Path    string
	Timeout time.Duration

	// Standard streams for the command. The unlock check is interactive,
	// so they default to the gate's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a runner for the command at path. The timeout is
// clamped to [MinTimeout, MaxTimeout]; zero selects DefaultTimeout.
func NewRunner(path string, timeout time.Duration) *Runner {
	return &Runner{
		Path:    path,
		Timeout: ClampTimeout(timeout),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// ClampTimeout applies the default and bounds to a configured timeout.
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// Run executes the command once and waits for it to exit or time out.
// Anything other than a clean exit with status 0 is a failed check.
func (r *Runner) Run(ctx context.Context) Result {
	checkCtx, cancel := context.WithTimeout(ctx, ClampTimeout(r.Timeout))
	defer cancel()

	cmd := exec.CommandContext(checkCtx, r.Path) //nolint:gosec // fixed path from gate configuration
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start), Err: err}

	if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		if res.Err == nil {
			res.Err = context.DeadlineExceeded
		}
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
	}
	return res
}
