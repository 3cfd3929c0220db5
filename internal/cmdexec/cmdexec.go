// Package cmdexec runs external package manager commands (pip, conda) and
// captures structured results for transcript classification.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
)

// Command represents one external invocation.
type Command struct {
	// Binary is the executable to run (e.g. a venv's pip).
	Binary string

	// Arguments are the command-line arguments.
	Arguments []string

	// WorkingDirectory is the directory to execute in. Empty means inherit.
	WorkingDirectory string

	// Environment variables in KEY=VALUE form, merged over the host env.
	Environment []string

	// Timeout bounds execution. Zero means the runner's default.
	Timeout time.Duration
}

// CommandString returns the full command as a string for display/logging.
func (c Command) CommandString() string {
	result := c.Binary
	for _, arg := range c.Arguments {
		result += " " + arg
	}
	return result
}

// Result holds everything a caller needs to classify an invocation.
type Result struct {
	Stdout     string
	Stderr     string
	Combined   string
	ExitCode   int
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Succeeded reports whether the process exited zero without cancellation.
func (r *Result) Succeeded() bool {
	return r != nil && !r.Cancelled && r.ExitCode == 0
}

// Runner executes commands. Implementations must honor ctx cancellation and
// report it through Result.Cancelled rather than a partial transcript.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// DirectRunner executes commands directly on the host with os/exec.
type DirectRunner struct {
	// DefaultTimeout applies when a command carries no timeout of its own.
	DefaultTimeout time.Duration

	// Audit, when set, is called with every finished invocation.
	Audit func(cmd Command, res *Result)
}

// NewDirectRunner creates a runner with a sane default timeout.
func NewDirectRunner() *DirectRunner {
	return &DirectRunner{DefaultTimeout: 2 * time.Minute}
}

// Run executes the command and captures exit code, stdout and stderr.
func (r *DirectRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("binary is required")
	}

	timer := logging.StartTimer(logging.CategoryPackages, "command "+cmd.Binary)
	defer timer.Stop()
	logging.PackagesDebug("Executing: %s", cmd.CommandString())

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	c.Dir = cmd.WorkingDirectory
	if len(cmd.Environment) > 0 {
		c.Env = append(os.Environ(), cmd.Environment...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	res := &Result{StartedAt: time.Now(), ExitCode: -1}
	err := c.Run()
	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Combined = res.Stdout + res.Stderr

	switch {
	case ctx.Err() != nil:
		res.Cancelled = true
	case execCtx.Err() != nil:
		// Hit the per-command timeout rather than caller cancellation.
		res.Cancelled = true
	case err == nil:
		res.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure (binary missing, permissions). No transcript.
			if r.Audit != nil {
				r.Audit(cmd, res)
			}
			return res, err
		}
	}

	if r.Audit != nil {
		r.Audit(cmd, res)
	}
	if res.Cancelled {
		if cerr := ctx.Err(); cerr != nil {
			return res, cerr
		}
		return res, context.DeadlineExceeded
	}
	return res, nil
}
