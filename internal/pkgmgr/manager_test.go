package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/cmdexec"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/config"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/gateway"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/interp"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/registry"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// newTestManager wires a configured manager against the embedded runtime
// and the simulated pip runner. No catalog database, no online index.
func newTestManager(t *testing.T, installed ...types.Distribution) (*Manager, *cmdexec.SimulatedRunner) {
	t.Helper()

	rt, err := interp.NewEmbeddedRuntime(installed...)
	if err != nil {
		t.Fatalf("NewEmbeddedRuntime failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	runner := cmdexec.NewSimulatedRunner(rt)
	sessions := registry.NewSessions()
	env := types.NewEnvironment("env-1", "sandbox")

	mgr := New(Options{
		Gateway:   gateway.New(rt),
		Runner:    runner,
		Sessions:  sessions,
		Execution: config.ExecutionConfig{BatchSize: 4, BatchYieldMs: 1},
	})

	session, err := sessions.Create("alice", env.ID)
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	if err := mgr.Configure(context.Background(), session, env); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return mgr, runner
}

func TestConfigure_RejectsMismatchedEnvironment(t *testing.T) {
	mgr, _ := newTestManager(t)

	other := types.NewEnvironment("env-2", "other")
	session := mgr.Session()

	err := mgr.Configure(context.Background(), session, other)
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestOperationsRequireConfigure(t *testing.T) {
	mgr := New(Options{})
	if _, err := mgr.Install(context.Background(), "numpy"); err == nil {
		t.Fatal("expected error from unconfigured manager")
	}
}

func TestInstall_Success(t *testing.T) {
	mgr, runner := newTestManager(t)
	runner.AddToCatalog(types.Distribution{Name: "numpy", Version: "1.26.4", Summary: "arrays"})

	ok, err := mgr.Install(context.Background(), "numpy")
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !ok {
		t.Fatal("expected install to succeed")
	}

	rec, found := mgr.Environment().Package("numpy")
	if !found {
		t.Fatal("expected numpy record after install")
	}
	if rec.Version != "1.26.4" {
		t.Errorf("expected version 1.26.4, got %s", rec.Version)
	}
	if rec.Status != types.StatusInstalled {
		t.Errorf("expected status installed, got %s", rec.Status)
	}
	if rec.Category != types.CategoryDataScience {
		t.Errorf("expected data-science category, got %s", rec.Category)
	}
	if mgr.Environment().LastSync.IsZero() {
		t.Error("expected LastSync stamp after install")
	}
}

func TestInstall_FailedTranscriptLeavesCollectionUnchanged(t *testing.T) {
	mgr, _ := newTestManager(t)

	ok, err := mgr.Install(context.Background(), "nonexistent-pkg-xyz")
	if err != nil {
		t.Fatalf("Install returned error: %v", err)
	}
	if ok {
		t.Fatal("expected install to report failure")
	}
	if n := mgr.Environment().PackageCount(); n != 0 {
		t.Errorf("expected empty collection, got %d records", n)
	}
}

func TestInstall_CancelledLeavesCollectionUnchanged(t *testing.T) {
	mgr, runner := newTestManager(t)
	runner.AddToCatalog(types.Distribution{Name: "numpy", Version: "1.26.4"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.Install(ctx, "numpy")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := mgr.Environment().PackageCount(); n != 0 {
		t.Errorf("expected empty collection after cancellation, got %d records", n)
	}
}

func TestBusy_SecondOperationRejected(t *testing.T) {
	mgr, _ := newTestManager(t,
		types.Distribution{Name: "numpy", Version: "1.26.4"},
	)

	// Hold the busy guard the way an in-flight ListAll would.
	if err := mgr.begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var second error
	go func() {
		defer wg.Done()
		_, second = mgr.ListAll(context.Background())
	}()
	wg.Wait()
	mgr.end()

	if !errors.Is(second, types.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", second)
	}

	// Guard released: the next operation goes through.
	if _, err := mgr.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll after release failed: %v", err)
	}
}

func TestBusy_ConfigureDuringOperationRejected(t *testing.T) {
	mgr, _ := newTestManager(t)

	// Hold the busy guard the way an in-flight Install would.
	if err := mgr.begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	other := types.NewEnvironment("env-2", "other")
	sessions := registry.NewSessions()
	session, err := sessions.Create("bob", other.ID)
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	if err := mgr.Configure(context.Background(), session, other); !errors.Is(err, types.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if mgr.Environment().Name != "sandbox" {
		t.Errorf("expected binding to survive rejected reconfigure, got %s", mgr.Environment().Name)
	}
	mgr.end()

	// Guard released: rebinding goes through.
	if err := mgr.Configure(context.Background(), session, other); err != nil {
		t.Fatalf("Configure after release failed: %v", err)
	}
	if mgr.Environment().Name != "other" {
		t.Errorf("expected rebound environment, got %s", mgr.Environment().Name)
	}
}

func TestUninstall_RemovesRecord(t *testing.T) {
	mgr, _ := newTestManager(t,
		types.Distribution{Name: "requests", Version: "2.32.3"},
	)
	if _, err := mgr.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if _, found := mgr.Environment().Package("requests"); !found {
		t.Fatal("expected requests record before uninstall")
	}

	ok, err := mgr.Uninstall(context.Background(), "requests")
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if !ok {
		t.Fatal("expected uninstall to succeed")
	}
	if _, found := mgr.Environment().Package("requests"); found {
		t.Error("expected requests record gone after uninstall")
	}

	rec, err := mgr.GetInfo(context.Background(), "requests")
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no record for uninstalled package, got %+v", rec)
	}
}

func TestGetInfo_OfflineStillReturnsLocalRecord(t *testing.T) {
	// No index wired at all: the record comes purely from introspection and
	// carries no available update.
	mgr, _ := newTestManager(t,
		types.Distribution{Name: "requests", Version: "2.32.3", Summary: "Python HTTP for Humans"},
	)

	rec, err := mgr.GetInfo(context.Background(), "requests")
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record from local introspection")
	}
	if rec.Version != "2.32.3" {
		t.Errorf("expected version 2.32.3, got %s", rec.Version)
	}
	if rec.AvailableVersion != "" {
		t.Errorf("expected no available version offline, got %s", rec.AvailableVersion)
	}
	if rec.Action != types.ActionStatus {
		t.Errorf("expected status action offline, got %s", rec.Action)
	}
}

func TestUpgrade_RefreshesVersion(t *testing.T) {
	mgr, runner := newTestManager(t,
		types.Distribution{Name: "pandas", Version: "2.0.0"},
	)
	runner.AddToCatalog(types.Distribution{Name: "pandas", Version: "2.2.2"})

	ok, err := mgr.Upgrade(context.Background(), "pandas")
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	if !ok {
		t.Fatal("expected upgrade to succeed")
	}
	rec, found := mgr.Environment().Package("pandas")
	if !found {
		t.Fatal("expected pandas record after upgrade")
	}
	if rec.Version != "2.2.2" {
		t.Errorf("expected refreshed version 2.2.2, got %s", rec.Version)
	}
}

func TestUpgradeAll_PartialFailure(t *testing.T) {
	mgr, runner := newTestManager(t,
		types.Distribution{Name: "numpy", Version: "1.20.0"},
		types.Distribution{Name: "orphaned-pkg", Version: "0.1.0"},
	)
	runner.AddToCatalog(types.Distribution{Name: "numpy", Version: "1.26.4"})
	if _, err := mgr.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}

	ok, err := mgr.UpgradeAll(context.Background())
	if ok {
		t.Fatal("expected overall failure flag")
	}
	if err == nil || !strings.Contains(err.Error(), "orphaned-pkg") {
		t.Fatalf("expected aggregated error naming orphaned-pkg, got %v", err)
	}

	// The package that could upgrade still did.
	rec, _ := mgr.Environment().Package("numpy")
	if rec == nil || rec.Version != "1.26.4" {
		t.Errorf("expected numpy upgraded to 1.26.4, got %+v", rec)
	}
}

func TestListAll_PopulatesAndCategorizes(t *testing.T) {
	mgr, _ := newTestManager(t,
		types.Distribution{Name: "numpy", Version: "1.26.4"},
		types.Distribution{Name: "pytest", Version: "8.2.0"},
		types.Distribution{Name: "mystery-thing", Version: "0.0.1"},
	)

	records, err := mgr.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if n := mgr.Environment().PackageCount(); n != 3 {
		t.Fatalf("expected 3 records in environment, got %d", n)
	}

	rec, _ := mgr.Environment().Package("numpy")
	if rec.Category != types.CategoryDataScience {
		t.Errorf("numpy: expected data-science, got %s", rec.Category)
	}
	rec, _ = mgr.Environment().Package("pytest")
	if rec.Category != types.CategoryTesting {
		t.Errorf("pytest: expected testing, got %s", rec.Category)
	}
	rec, _ = mgr.Environment().Package("mystery-thing")
	if rec.Category != types.CategoryUncategorized {
		t.Errorf("mystery-thing: expected uncategorized, got %s", rec.Category)
	}
}

func TestListAll_CancelledLeavesCollectionUnchanged(t *testing.T) {
	mgr, _ := newTestManager(t,
		types.Distribution{Name: "numpy", Version: "1.26.4"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.ListAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := mgr.Environment().PackageCount(); n != 0 {
		t.Errorf("expected untouched collection, got %d records", n)
	}
}

func TestResolveAction(t *testing.T) {
	cases := []struct {
		installed, online string
		want              types.PackageAction
	}{
		{"1.0.0", "2.0.0", types.ActionUpdate},
		{"2.0.0", "2.0.0", types.ActionStatus},
		{"2.1.0", "2.0.0", types.ActionStatus},
		{"1.24", "1.24.1", types.ActionUpdate},
		{"", "2.0.0", types.ActionStatus},
		{"1.0.0", "", types.ActionStatus},
		{"not-a-version", "2.0.0", types.ActionStatus},
		{"1.0.0", "garbage", types.ActionStatus},
	}
	for _, tc := range cases {
		if got := resolveAction(tc.installed, tc.online); got != tc.want {
			t.Errorf("resolveAction(%q, %q) = %s, want %s", tc.installed, tc.online, got, tc.want)
		}
	}
}

func TestCommandShapes(t *testing.T) {
	mgr, _ := newTestManager(t)

	cmd := mgr.installCommand("numpy==1.26.4")
	if cmd.Arguments[0] != "install" || cmd.Arguments[len(cmd.Arguments)-1] != "numpy==1.26.4" {
		t.Errorf("unexpected pip install shape: %v", cmd.Arguments)
	}

	cmd = mgr.uninstallCommand("numpy")
	if cmd.Arguments[0] != "uninstall" {
		t.Errorf("unexpected pip uninstall shape: %v", cmd.Arguments)
	}

	mgr.env.Binary = types.BinaryConda
	cmd = mgr.installCommand("numpy")
	want := []string{"install", "-c", "conda-forge", "-y", "numpy"}
	for i, a := range want {
		if cmd.Arguments[i] != a {
			t.Fatalf("unexpected conda install shape: %v", cmd.Arguments)
		}
	}
	if cmd.Binary != "conda" {
		t.Errorf("expected conda binary, got %s", cmd.Binary)
	}

	cmd = mgr.upgradeCommand("conda")
	if cmd.Arguments[0] != "update" || cmd.Arguments[len(cmd.Arguments)-1] != "conda" {
		t.Errorf("unexpected conda self-upgrade shape: %v", cmd.Arguments)
	}
}

func TestStripConstraint(t *testing.T) {
	cases := map[string]string{
		"numpy":         "numpy",
		"numpy==1.26.4": "numpy",
		"pandas>=2.0":   "pandas",
		"scipy ~= 1.11": "scipy",
		"torch!=2.0.0":  "torch",
	}
	for in, want := range cases {
		if got := stripConstraint(in); got != want {
			t.Errorf("stripConstraint(%q) = %q, want %q", in, got, want)
		}
	}
}
