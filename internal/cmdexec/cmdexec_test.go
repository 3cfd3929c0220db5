package cmdexec

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/interp"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

func TestDirectRunner_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix tools")
	}
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, exit %d", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("expected stdout to contain hello, got %q", res.Stdout)
	}
}

func TestDirectRunner_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix tools")
	}
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", res.ExitCode)
	}
	if res.Succeeded() {
		t.Error("expected failure")
	}
}

func TestDirectRunner_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix tools")
	}
	runner := NewDirectRunner()

	start := time.Now()
	res, err := runner.Run(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"10"},
		Timeout:   200 * time.Millisecond,
	})
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not fire")
	}
	if err == nil {
		t.Fatal("expected error on timeout")
	}
	if res == nil || !res.Cancelled {
		t.Errorf("expected cancelled result, got %+v", res)
	}
}

func TestDirectRunner_ContextCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix tools")
	}
	runner := NewDirectRunner()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := runner.Run(ctx, Command{Binary: "sleep", Arguments: []string{"10"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || !res.Cancelled {
		t.Errorf("expected cancelled result, got %+v", res)
	}
}

func TestDirectRunner_Audit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix tools")
	}
	var audited []string
	runner := NewDirectRunner()
	runner.Audit = func(cmd Command, res *Result) {
		audited = append(audited, cmd.CommandString())
	}

	if _, err := runner.Run(context.Background(), Command{Binary: "true"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(audited) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audited))
	}
}

func newSimRunner(t *testing.T, installed ...types.Distribution) *SimulatedRunner {
	t.Helper()
	rt, err := interp.NewEmbeddedRuntime(installed...)
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return NewSimulatedRunner(rt)
}

func TestSimulatedRunner_InstallHitAndMiss(t *testing.T) {
	runner := newSimRunner(t)
	runner.AddToCatalog(types.Distribution{Name: "numpy", Version: "1.26.4"})

	res, err := runner.Run(context.Background(), Command{
		Binary: "pip", Arguments: []string{"install", "-U", "numpy==1.26.4"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Succeeded() || !strings.Contains(res.Combined, "Successfully installed numpy-1.26.4") {
		t.Errorf("unexpected transcript: %q (exit %d)", res.Combined, res.ExitCode)
	}

	res, err = runner.Run(context.Background(), Command{
		Binary: "pip", Arguments: []string{"install", "-U", "no-such-pkg"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Succeeded() || !strings.Contains(res.Combined, "Could not find a version") {
		t.Errorf("expected miss transcript, got %q (exit %d)", res.Combined, res.ExitCode)
	}
}

func TestSimulatedRunner_CondaArgumentShape(t *testing.T) {
	runner := newSimRunner(t)
	runner.AddToCatalog(types.Distribution{Name: "scipy", Version: "1.13.0"})

	// The channel flag's value must not be mistaken for the target.
	res, err := runner.Run(context.Background(), Command{
		Binary: "conda", Arguments: []string{"install", "-c", "conda-forge", "-y", "scipy"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, got %q (exit %d)", res.Combined, res.ExitCode)
	}
}

func TestSimulatedRunner_Uninstall(t *testing.T) {
	runner := newSimRunner(t, types.Distribution{Name: "requests", Version: "2.32.3"})

	res, err := runner.Run(context.Background(), Command{
		Binary: "pip", Arguments: []string{"uninstall", "-y", "requests"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, got %q", res.Combined)
	}
}

func TestSimulatedRunner_Cancelled(t *testing.T) {
	runner := newSimRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := runner.Run(ctx, Command{Binary: "pip", Arguments: []string{"install", "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !res.Cancelled {
		t.Error("expected cancelled result")
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{Binary: "pip", Arguments: []string{"install", "-U", "numpy"}}
	if got := cmd.CommandString(); got != "pip install -U numpy" {
		t.Errorf("unexpected command string %q", got)
	}
}
