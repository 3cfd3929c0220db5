package interp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// pyWorker owns one python process and its pipes. Exactly one goroutine
// talks to a worker at a time; once a request is abandoned the worker is
// detached from the runtime and the in-flight goroutine keeps sole
// ownership of the pipes until it reaps the process.
type pyWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

func (w *pyWorker) roundTrip(script string) (string, error) {
	payload := []byte(script)
	if _, err := fmt.Fprintf(w.stdin, "%d\n", len(payload)); err != nil {
		return "", fmt.Errorf("failed to write script header: %w", err)
	}
	if _, err := w.stdin.Write(payload); err != nil {
		return "", fmt.Errorf("failed to write script body: %w", err)
	}

	header, err := w.stdout.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read worker response: %w", err)
	}
	fields := strings.Fields(strings.TrimSpace(header))
	if len(fields) != 2 {
		return "", fmt.Errorf("malformed worker response header: %q", header)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return "", fmt.Errorf("malformed worker response length: %q", header)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(w.stdout, body); err != nil {
		return "", fmt.Errorf("failed to read worker response body: %w", err)
	}

	switch fields[0] {
	case "OK":
		return string(body), nil
	case "ERR":
		return "", &RuntimeError{Output: strings.TrimSpace(string(body))}
	default:
		return "", fmt.Errorf("unknown worker status %q", fields[0])
	}
}

// PythonRuntime drives a persistent python worker process. All scripts run
// against one shared globals dict, so state written by one script is visible
// to the next, exactly like an embedded interpreter. The process is started
// lazily on first use.
type PythonRuntime struct {
	mu     sync.Mutex
	binary string

	worker *pyWorker
	closed bool
}

// NewPythonRuntime creates a runtime backed by the given python binary.
func NewPythonRuntime(binary string) *PythonRuntime {
	if binary == "" {
		binary = "python3"
	}
	return &PythonRuntime{binary: binary}
}

func (p *PythonRuntime) start() error {
	if p.worker != nil {
		return nil
	}
	if p.closed {
		return fmt.Errorf("python runtime is closed")
	}

	cmd := exec.Command(p.binary, "-u", "-c", workerBootstrap)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start python worker: %w", err)
	}

	p.worker = &pyWorker{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}
	logging.Gateway("Started python worker (pid %d, binary %s)", cmd.Process.Pid, p.binary)
	return nil
}

// discard reaps a worker whose protocol state is no longer trustworthy,
// for example after a transport failure. The next Eval restarts. Only
// called once the worker's in-flight request has finished.
func (p *PythonRuntime) discard(w *pyWorker) {
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
	if p.worker == w {
		p.worker = nil
	}
}

// Eval runs a script in the worker and returns its stdout.
func (p *PythonRuntime) Eval(ctx context.Context, script string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.start(); err != nil {
		return "", err
	}
	w := p.worker

	type evalResult struct {
		out string
		err error
	}
	done := make(chan evalResult, 1)
	go func() {
		out, err := w.roundTrip(script)
		done <- evalResult{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if _, ok := res.err.(*RuntimeError); !ok {
				// Transport failure: the pipe protocol is out of sync.
				p.discard(w)
			}
		}
		return res.out, res.err
	case <-ctx.Done():
		// The response can no longer be matched to its request, so the
		// worker is killed rather than resynchronized, and detached so
		// the next Eval starts a fresh one. The abandoned goroutine
		// keeps the old worker's pipes; killing the process unblocks its
		// read, and the reap waits for it before calling Wait.
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		p.worker = nil
		go func() {
			<-done
			_ = w.cmd.Wait()
		}()
		return "", ctx.Err()
	}
}

// ListDistributions enumerates installed distributions via introspection.
func (p *PythonRuntime) ListDistributions(ctx context.Context) ([]types.Distribution, error) {
	out, err := p.Eval(ctx, listDistributionsScript)
	if err != nil {
		return nil, err
	}
	var dists []types.Distribution
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &dists); err != nil {
		return nil, fmt.Errorf("failed to decode distribution list: %w", err)
	}
	return dists, nil
}

// DistributionInfo looks up a single distribution.
func (p *PythonRuntime) DistributionInfo(ctx context.Context, name string) (*types.Distribution, error) {
	out, err := p.Eval(ctx, distributionInfoScript(name))
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "null" || trimmed == "" {
		return nil, nil
	}
	var dist types.Distribution
	if err := json.Unmarshal([]byte(trimmed), &dist); err != nil {
		return nil, fmt.Errorf("failed to decode distribution info: %w", err)
	}
	return &dist, nil
}

// PythonVersion reports the worker's interpreter version.
func (p *PythonRuntime) PythonVersion(ctx context.Context) (string, error) {
	out, err := p.Eval(ctx, pythonVersionScript)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Close terminates the worker process.
func (p *PythonRuntime) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.worker == nil {
		return nil
	}
	w := p.worker
	p.worker = nil
	_ = w.stdin.Close()
	return w.cmd.Wait()
}
