package cmdexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/interp"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// SimulatedRunner interprets pip/conda command lines against an embedded
// runtime's distribution table instead of spawning processes. It backs the
// --simulate CLI mode and most engine tests.
type SimulatedRunner struct {
	rt *interp.EmbeddedRuntime

	// Catalog lists the packages the simulated index can install, keyed by
	// normalized name.
	Catalog map[string]types.Distribution
}

// NewSimulatedRunner wires a simulated runner to the embedded runtime.
func NewSimulatedRunner(rt *interp.EmbeddedRuntime) *SimulatedRunner {
	return &SimulatedRunner{rt: rt, Catalog: make(map[string]types.Distribution)}
}

// AddToCatalog registers an installable package in the simulated index.
func (s *SimulatedRunner) AddToCatalog(d types.Distribution) {
	s.Catalog[types.PackageKey(d.Name)] = d
}

// Run interprets the verb and target of a pip/conda invocation.
func (s *SimulatedRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	started := time.Now()
	finish := func(out string, code int) (*Result, error) {
		now := time.Now()
		return &Result{
			Stdout:     out,
			Combined:   out,
			ExitCode:   code,
			StartedAt:  started,
			FinishedAt: now,
			Duration:   now.Sub(started),
		}, nil
	}

	if err := ctx.Err(); err != nil {
		now := time.Now()
		return &Result{Cancelled: true, ExitCode: -1, StartedAt: started, FinishedAt: now}, err
	}

	verb, target := parseInvocation(cmd.Arguments)
	name := stripConstraint(target)
	switch verb {
	case "install", "update", "upgrade":
		dist, ok := s.Catalog[types.PackageKey(name)]
		if !ok {
			return finish(fmt.Sprintf("ERROR: Could not find a version that satisfies the requirement %s\n", name), 1)
		}
		if err := s.rt.AddDistribution(dist); err != nil {
			return nil, err
		}
		return finish(fmt.Sprintf("Successfully installed %s-%s\n", dist.Name, dist.Version), 0)
	case "uninstall", "remove":
		if err := s.rt.RemoveDistribution(name); err != nil {
			return nil, err
		}
		return finish(fmt.Sprintf("Successfully uninstalled %s\n", name), 0)
	default:
		return finish(fmt.Sprintf("ERROR: unknown command %q\n", verb), 2)
	}
}

// parseInvocation extracts the verb and the final non-flag argument.
func parseInvocation(args []string) (verb, target string) {
	skipNext := false
	for i, a := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if i == 0 {
			verb = a
			continue
		}
		if a == "-c" {
			skipNext = true // channel argument
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		target = a
	}
	return verb, target
}

func stripConstraint(spec string) string {
	if i := strings.IndexAny(spec, "=><~!"); i >= 0 {
		return spec[:i]
	}
	return spec
}
