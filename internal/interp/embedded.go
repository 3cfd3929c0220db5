package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	yaegi "github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// embeddedSeed is the program evaluated once at construction. It owns the
// simulated distribution table as interpreter-global state; every later
// script reads or mutates that same state, which is what makes concurrent
// unsynchronized access unsafe and the gateway necessary even in this mode.
const embeddedSeed = `package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type dist struct {
	Name     string ` + "`json:\"name\"`" + `
	Version  string ` + "`json:\"version\"`" + `
	Summary  string ` + "`json:\"summary\"`" + `
	Location string ` + "`json:\"location\"`" + `
}

var table = map[string]dist{}

func Add(name, version, summary, location string) {
	table[strings.ToLower(name)] = dist{Name: name, Version: version, Summary: summary, Location: location}
}

func Remove(name string) {
	delete(table, strings.ToLower(name))
}

func List() {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]dist, 0, len(keys))
	for _, k := range keys {
		out = append(out, table[k])
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}

func Info(name string) {
	d, ok := table[strings.ToLower(name)]
	if !ok {
		fmt.Println("null")
		return
	}
	b, _ := json.Marshal(d)
	fmt.Println(string(b))
}
`

// EmbeddedRuntime is an in-process interpreter used when no python binary is
// configured, and throughout the tests. Distribution state lives inside the
// interpreted program, not in Go, so every operation is a real Eval.
type EmbeddedRuntime struct {
	mu     sync.Mutex
	interp *yaegi.Interpreter
	out    bytes.Buffer
	closed bool
}

// NewEmbeddedRuntime constructs the runtime and seeds the distribution
// table with the given records.
func NewEmbeddedRuntime(seed ...types.Distribution) (*EmbeddedRuntime, error) {
	rt := &EmbeddedRuntime{}
	rt.interp = yaegi.New(yaegi.Options{Stdout: &rt.out})
	if err := rt.interp.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if _, err := rt.interp.Eval(embeddedSeed); err != nil {
		return nil, fmt.Errorf("failed to seed embedded runtime: %w", err)
	}
	for _, d := range seed {
		if err := rt.AddDistribution(d); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// Eval runs a script against the interpreter and returns captured stdout.
func (e *EmbeddedRuntime) Eval(ctx context.Context, script string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", fmt.Errorf("embedded runtime is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.out.Reset()
	if _, err := e.interp.Eval(script); err != nil {
		return "", &RuntimeError{Output: err.Error()}
	}
	return e.out.String(), nil
}

// AddDistribution records an installed distribution in the simulated table.
func (e *EmbeddedRuntime) AddDistribution(d types.Distribution) error {
	_, err := e.Eval(context.Background(),
		fmt.Sprintf("Add(%q, %q, %q, %q)", d.Name, d.Version, d.Summary, d.Location))
	return err
}

// RemoveDistribution drops a distribution from the simulated table.
func (e *EmbeddedRuntime) RemoveDistribution(name string) error {
	_, err := e.Eval(context.Background(), fmt.Sprintf("Remove(%q)", name))
	return err
}

// ListDistributions enumerates the simulated table.
func (e *EmbeddedRuntime) ListDistributions(ctx context.Context) ([]types.Distribution, error) {
	out, err := e.Eval(ctx, "List()")
	if err != nil {
		return nil, err
	}
	var dists []types.Distribution
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &dists); err != nil {
		return nil, fmt.Errorf("failed to decode distribution list: %w", err)
	}
	return dists, nil
}

// DistributionInfo looks up a single simulated distribution.
func (e *EmbeddedRuntime) DistributionInfo(ctx context.Context, name string) (*types.Distribution, error) {
	out, err := e.Eval(ctx, fmt.Sprintf("Info(%q)", name))
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

// PythonVersion reports a synthetic version for the simulated runtime.
func (e *EmbeddedRuntime) PythonVersion(ctx context.Context) (string, error) {
	return "3.11 (embedded)", nil
}

// Close marks the runtime unusable.
func (e *EmbeddedRuntime) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
