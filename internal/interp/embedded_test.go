package interp

import (
	"context"
	"errors"
	"testing"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

func TestEmbeddedRuntime_SharedState(t *testing.T) {
	rt, err := NewEmbeddedRuntime()
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()

	// State set by one eval is visible to the next: a single shared scope.
	if _, err := rt.Eval(ctx, `counter := 40`); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	out, err := rt.Eval(ctx, `counter += 2; fmt.Println(counter)`)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if out != "42\n" {
		t.Errorf("expected 42, got %q", out)
	}
}

func TestEmbeddedRuntime_Distributions(t *testing.T) {
	rt, err := NewEmbeddedRuntime(
		types.Distribution{Name: "numpy", Version: "1.26.4", Summary: "arrays"},
	)
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()

	dists, err := rt.ListDistributions(ctx)
	if err != nil {
		t.Fatalf("ListDistributions failed: %v", err)
	}
	if len(dists) != 1 || dists[0].Name != "numpy" {
		t.Fatalf("unexpected distributions: %+v", dists)
	}

	if err := rt.AddDistribution(types.Distribution{Name: "pandas", Version: "2.2.2"}); err != nil {
		t.Fatalf("AddDistribution failed: %v", err)
	}

	info, err := rt.DistributionInfo(ctx, "PANDAS")
	if err != nil {
		t.Fatalf("DistributionInfo failed: %v", err)
	}
	if info == nil || info.Version != "2.2.2" {
		t.Fatalf("expected pandas 2.2.2, got %+v", info)
	}

	if err := rt.RemoveDistribution("numpy"); err != nil {
		t.Fatalf("RemoveDistribution failed: %v", err)
	}
	info, err = rt.DistributionInfo(ctx, "numpy")
	if err != nil {
		t.Fatalf("DistributionInfo failed: %v", err)
	}
	if info != nil {
		t.Errorf("expected numpy gone, got %+v", info)
	}
}

func TestEmbeddedRuntime_EvalErrorIsRuntimeError(t *testing.T) {
	rt, err := NewEmbeddedRuntime()
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	defer rt.Close()

	_, err = rt.Eval(context.Background(), `thisIsNotDefined()`)
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %T: %v", err, err)
	}
}

func TestEmbeddedRuntime_ClosedRejectsEval(t *testing.T) {
	rt, err := NewEmbeddedRuntime()
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	rt.Close()

	if _, err := rt.Eval(context.Background(), `x := 1`); err == nil {
		t.Fatal("expected error after Close")
	}
}
