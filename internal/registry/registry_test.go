package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

func openTestCatalog(t *testing.T) *Environments {
	t.Helper()
	envs, err := OpenEnvironments(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenEnvironments failed: %v", err)
	}
	t.Cleanup(func() { envs.Close() })
	return envs
}

func TestEnvironments_SaveAndLoad(t *testing.T) {
	envs := openTestCatalog(t)

	env := types.NewEnvironment("env-1", "sandbox")
	env.PythonVersion = "3.11.4"
	env.Root = "/opt/venvs/sandbox"
	env.Binary = types.BinaryConda
	env.LastSync = time.Unix(1700000000, 0)
	env.Upsert(&types.PackageRecord{
		Name:     "numpy",
		Version:  "1.26.4",
		Status:   types.StatusInstalled,
		Category: types.CategoryDataScience,
		Action:   types.ActionStatus,
	})

	if err := envs.Save(env); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := envs.Get("env-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected environment, got nil")
	}
	if loaded.Name != "sandbox" || loaded.PythonVersion != "3.11.4" || loaded.Binary != types.BinaryConda {
		t.Errorf("loaded environment mismatch: %+v", loaded)
	}
	if !loaded.LastSync.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("last sync mismatch: %v", loaded.LastSync)
	}

	rec, found := loaded.Package("numpy")
	if !found {
		t.Fatal("expected numpy record")
	}
	if rec.Version != "1.26.4" || rec.Category != types.CategoryDataScience {
		t.Errorf("record mismatch: %+v", rec)
	}
}

func TestEnvironments_SaveReplacesPackages(t *testing.T) {
	envs := openTestCatalog(t)

	env := types.NewEnvironment("env-1", "sandbox")
	env.Upsert(&types.PackageRecord{Name: "numpy", Version: "1.0"})
	env.Upsert(&types.PackageRecord{Name: "pandas", Version: "2.0"})
	if err := envs.Save(env); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	env.Remove("pandas")
	if err := envs.Save(env); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, _ := envs.Get("env-1")
	if n := loaded.PackageCount(); n != 1 {
		t.Errorf("expected 1 package after replace, got %d", n)
	}
}

func TestEnvironments_GetMissingIsNil(t *testing.T) {
	envs := openTestCatalog(t)
	env, err := envs.Get("no-such-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if env != nil {
		t.Errorf("expected nil for missing id, got %+v", env)
	}
}

func TestEnvironments_Remove(t *testing.T) {
	envs := openTestCatalog(t)

	env := types.NewEnvironment("env-1", "sandbox")
	env.Upsert(&types.PackageRecord{Name: "numpy"})
	if err := envs.Save(env); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := envs.Remove("env-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	loaded, _ := envs.Get("env-1")
	if loaded != nil {
		t.Error("expected environment gone after Remove")
	}
}

func TestEnvironments_ResolveDefault(t *testing.T) {
	envs := openTestCatalog(t)

	// Empty catalog: nothing to resolve.
	if _, err := envs.ResolveDefault(""); err == nil {
		t.Fatal("expected error on empty catalog")
	}

	a := types.NewEnvironment("env-a", "alpha")
	if err := envs.Save(a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Sole environment wins without a configured default.
	got, err := envs.ResolveDefault("")
	if err != nil {
		t.Fatalf("ResolveDefault failed: %v", err)
	}
	if got.ID != "env-a" {
		t.Errorf("expected env-a, got %s", got.ID)
	}

	b := types.NewEnvironment("env-b", "beta")
	if err := envs.Save(b); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Two environments: the configured default name decides.
	got, err = envs.ResolveDefault("beta")
	if err != nil {
		t.Fatalf("ResolveDefault failed: %v", err)
	}
	if got.ID != "env-b" {
		t.Errorf("expected env-b, got %s", got.ID)
	}

	// Ambiguous without a default.
	_, err = envs.ResolveDefault("")
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestSessions_CreateAndClose(t *testing.T) {
	sessions := NewSessions()

	s, err := sessions.Create("alice", "env-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.Status != types.SessionActive {
		t.Errorf("expected active status, got %s", s.Status)
	}
	if s.EnvironmentID != "env-1" {
		t.Errorf("expected env-1 binding, got %s", s.EnvironmentID)
	}

	got, ok := sessions.Get(s.ID)
	if !ok || got.ID != s.ID {
		t.Fatal("expected to retrieve created session")
	}

	sessions.Close(s.ID)
	got, _ = sessions.Get(s.ID)
	if got.Status != types.SessionClosed {
		t.Errorf("expected closed status, got %s", got.Status)
	}
	if sessions.ActiveCount() != 0 {
		t.Errorf("expected 0 active sessions, got %d", sessions.ActiveCount())
	}
}

func TestSessions_ForUserReusesActiveSession(t *testing.T) {
	sessions := NewSessions()

	first, err := sessions.ForUser("alice", "env-1")
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	again, err := sessions.ForUser("alice", "env-1")
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if first.ID != again.ID {
		t.Error("expected the active session to be reused")
	}

	// A different environment means a fresh session; bindings never change.
	other, err := sessions.ForUser("alice", "env-2")
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("expected a new session for a different environment")
	}

	// Closing forces a fresh session next time.
	sessions.Close(other.ID)
	fresh, err := sessions.ForUser("alice", "env-2")
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if fresh.ID == other.ID {
		t.Error("expected a new session after close")
	}
}

func TestWatcher_MarksEnvironmentStale(t *testing.T) {
	envs := openTestCatalog(t)

	dir := t.TempDir()
	reqPath := filepath.Join(dir, "requirements.txt")

	env := types.NewEnvironment("env-1", "sandbox")
	env.RequirementsPath = reqPath
	env.LastSync = time.Now()
	if err := envs.Save(env); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	w, err := NewRequirementsWatcher(envs)
	if err != nil {
		t.Fatalf("NewRequirementsWatcher failed: %v", err)
	}
	defer w.Stop()
	if err := w.Watch(env); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	w.Start()

	if err := os.WriteFile(reqPath, []byte("numpy==1.26.4\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		loaded, err := envs.Get("env-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded.LastSync.IsZero() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("environment was not marked stale after requirements change")
}

func TestWatcher_StopWithoutStartReleasesDescriptor(t *testing.T) {
	envs := openTestCatalog(t)

	w, err := NewRequirementsWatcher(envs)
	if err != nil {
		t.Fatalf("NewRequirementsWatcher failed: %v", err)
	}
	w.Stop()

	// The fsnotify handle is closed even though the loop never ran, so
	// registering a path afterwards fails instead of leaking a watch.
	env := types.NewEnvironment("env-1", "sandbox")
	env.RequirementsPath = filepath.Join(t.TempDir(), "requirements.txt")
	if err := w.Watch(env); err == nil {
		t.Fatal("expected Watch on stopped watcher to fail")
	}

	// Stop is idempotent.
	w.Stop()
}
