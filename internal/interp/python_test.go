package interp

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func newTestPythonRuntime(t *testing.T) *PythonRuntime {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not on PATH")
	}
	rt := NewPythonRuntime("python3")
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestPythonEvalSharedState(t *testing.T) {
	rt := newTestPythonRuntime(t)
	ctx := context.Background()

	if _, err := rt.Eval(ctx, "counter = 40\n"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	out, err := rt.Eval(ctx, "counter += 2\nprint(counter)\n")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if out != "42\n" {
		t.Fatalf("expected 42, got %q", out)
	}
}

func TestPythonEvalRuntimeErrorKeepsWorker(t *testing.T) {
	rt := newTestPythonRuntime(t)
	ctx := context.Background()

	if _, err := rt.Eval(ctx, "token = 'kept'\n"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	_, err := rt.Eval(ctx, "raise ValueError('boom')\n")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}

	// Script errors leave the worker and its globals intact.
	out, err := rt.Eval(ctx, "print(token)\n")
	if err != nil {
		t.Fatalf("Eval after script error failed: %v", err)
	}
	if out != "kept\n" {
		t.Fatalf("expected state to survive script error, got %q", out)
	}
}

func TestPythonEvalCancellationRestartsWorker(t *testing.T) {
	rt := newTestPythonRuntime(t)
	ctx := context.Background()

	if _, err := rt.Eval(ctx, "marker = 1\n"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err := rt.Eval(short, "import time\ntime.sleep(30)\n")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	// The abandoned worker was killed; the replacement starts with a
	// fresh globals dict.
	out, err := rt.Eval(ctx, "print('marker' in globals())\n")
	if err != nil {
		t.Fatalf("Eval after cancellation failed: %v", err)
	}
	if out != "False\n" {
		t.Fatalf("expected fresh worker state, got %q", out)
	}
}

func TestPythonEvalCancellationStress(t *testing.T) {
	rt := newTestPythonRuntime(t)

	// Cancellations landing at every phase of a round trip must never
	// panic or corrupt the protocol; each abandoned worker is detached
	// and reaped while a fresh one serves the next call.
	for i := 0; i < 15; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		delay := time.Duration(i%5) * time.Millisecond
		go func() {
			time.Sleep(delay)
			cancel()
		}()
		_, _ = rt.Eval(ctx, "import time\ntime.sleep(0.02)\nprint('tick')\n")
		cancel()
	}

	out, err := rt.Eval(context.Background(), "print('alive')\n")
	if err != nil {
		t.Fatalf("Eval after cancellation storm failed: %v", err)
	}
	if out != "alive\n" {
		t.Fatalf("expected alive, got %q", out)
	}
}

func TestPythonEvalNonASCIIScript(t *testing.T) {
	rt := newTestPythonRuntime(t)
	ctx := context.Background()

	// The script body is longer in bytes than in characters; the header
	// count and the worker's read must both be in bytes or the protocol
	// desynchronizes.
	out, err := rt.Eval(ctx, "print('héllo — значение ✓')\n")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if out != "héllo — значение ✓\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = rt.Eval(ctx, "print(1 + 1)\n")
	if err != nil {
		t.Fatalf("follow-up Eval failed: %v", err)
	}
	if out != "2\n" {
		t.Fatalf("protocol out of sync after non-ascii script: %q", out)
	}
}
