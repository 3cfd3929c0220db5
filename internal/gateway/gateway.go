// Package gateway is the single serialization point guarding all access to
// the embedded interpreter. The interpreter has one live global state per
// process, so correctness requires one writer at a time no matter how many
// logical sessions want to run operations concurrently.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/interp"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Observer is a test hook invoked with "enter" and "exit" around every
// guarded window.
type Observer func(event string, label string)

// Gateway owns the interpreter and serializes every unit of work dispatched
// into it. Interpreter-level failures are rewrapped as
// InterpreterExecutionError; anything else becomes OperationError. No
// automatic retries; callers decide.
type Gateway struct {
	mu sync.Mutex
	rt interp.Interpreter

	obsMu    sync.RWMutex
	observer Observer
}

// New creates a gateway owning the given runtime. Callers must not retain
// their own reference to the runtime.
func New(rt interp.Interpreter) *Gateway {
	return &Gateway{rt: rt}
}

// SetObserver installs a window observer (tests only).
func (g *Gateway) SetObserver(obs Observer) {
	g.obsMu.Lock()
	g.observer = obs
	g.obsMu.Unlock()
}

func (g *Gateway) observe(event, label string) {
	g.obsMu.RLock()
	obs := g.observer
	g.obsMu.RUnlock()
	if obs != nil {
		obs(event, label)
	}
}

// Run executes fn with exclusive access to the interpreter. The label names
// the operation for error reporting and logging.
func (g *Gateway) Run(ctx context.Context, label string, fn func(rt interp.Interpreter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.observe("enter", label)
	defer g.observe("exit", label)

	// A caller may have been cancelled while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := logging.StartTimer(logging.CategoryGateway, label)
	defer timer.Stop()

	err := g.invoke(label, fn)
	if err == nil {
		return nil
	}

	var runtimeErr *interp.RuntimeError
	switch {
	case errors.As(err, &runtimeErr):
		logging.Get(logging.CategoryGateway).Error("%s: interpreter failure: %v", label, runtimeErr)
		return &types.InterpreterExecutionError{Op: label, Cause: runtimeErr}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		logging.Get(logging.CategoryGateway).Error("%s: %v", label, err)
		return &types.OperationError{Op: label, Cause: err}
	}
}

// invoke isolates panic recovery so Run's deferred bookkeeping stays simple.
func (g *Gateway) invoke(label string, fn func(rt interp.Interpreter) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in guarded action %s: %v", label, r)
		}
	}()
	return fn(g.rt)
}

// Eval runs a raw script through the guarded interpreter.
func (g *Gateway) Eval(ctx context.Context, script string) (string, error) {
	var out string
	err := g.Run(ctx, "eval", func(rt interp.Interpreter) error {
		var evalErr error
		out, evalErr = rt.Eval(ctx, script)
		return evalErr
	})
	return out, err
}

// ListDistributions enumerates installed distributions under the lock.
func (g *Gateway) ListDistributions(ctx context.Context) ([]types.Distribution, error) {
	var dists []types.Distribution
	err := g.Run(ctx, "list-distributions", func(rt interp.Interpreter) error {
		var listErr error
		dists, listErr = rt.ListDistributions(ctx)
		return listErr
	})
	return dists, err
}

// DistributionInfo looks up one distribution under the lock.
func (g *Gateway) DistributionInfo(ctx context.Context, name string) (*types.Distribution, error) {
	var dist *types.Distribution
	err := g.Run(ctx, "distribution-info", func(rt interp.Interpreter) error {
		var infoErr error
		dist, infoErr = rt.DistributionInfo(ctx, name)
		return infoErr
	})
	return dist, err
}

// PythonVersion reports the runtime's interpreter version under the lock.
func (g *Gateway) PythonVersion(ctx context.Context) (string, error) {
	var version string
	err := g.Run(ctx, "python-version", func(rt interp.Interpreter) error {
		var verErr error
		version, verErr = rt.PythonVersion(ctx)
		return verErr
	})
	return version, err
}

// Warmup touches the runtime so scope creation failures surface at
// configuration time instead of on the first package operation.
func (g *Gateway) Warmup(ctx context.Context) error {
	_, err := g.PythonVersion(ctx)
	return err
}

// Close shuts the runtime down.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rt.Close()
}
