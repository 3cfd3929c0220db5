// Package interp is the boundary to the embedded scripting runtime. Exactly
// one runtime instance is live per process and it is handed to the execution
// gateway at construction; no other component talks to it directly.
package interp

import (
	"context"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Interpreter executes small programs inside the single embedded runtime.
// Implementations are not safe for concurrent use; the gateway serializes
// all access.
type Interpreter interface {
	// Eval runs a script and returns everything it printed to stdout.
	Eval(ctx context.Context, script string) (string, error)

	// ListDistributions enumerates every installed distribution.
	ListDistributions(ctx context.Context) ([]types.Distribution, error)

	// DistributionInfo looks up a single distribution. Returns (nil, nil)
	// when the distribution is not installed.
	DistributionInfo(ctx context.Context, name string) (*types.Distribution, error)

	// PythonVersion reports the runtime's interpreter version.
	PythonVersion(ctx context.Context) (string, error)

	// Close shuts the runtime down. Further calls fail.
	Close() error
}

// RuntimeError is a failure raised inside the interpreter itself, carrying
// the original message (typically a traceback). Transport and process
// failures are reported as plain errors instead.
type RuntimeError struct {
	Output string
}

func (e *RuntimeError) Error() string { return e.Output }
