package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/cmdexec"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/config"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/gateway"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/interp"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/pkgmgr"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/progress"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/pypi"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/registry"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/sets"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// app holds the wired component graph for one CLI invocation.
type app struct {
	workspace string
	cfg       *config.Config
	envs      *registry.Environments
	sessions  *registry.Sessions
	gw        *gateway.Gateway
	runner    cmdexec.Runner
	index     *pypi.Client
	hub       *progress.Hub
	mgr       *pkgmgr.Manager
	sets      *sets.Manager
	unsub     func()
}

// newApp builds the component graph bottom-up: config, catalog, runtime,
// gateway, then the operation engine. The manager is NOT configured yet;
// commands that operate on packages call configure separately so catalog
// commands work without an environment bound.
func newApp() (*app, error) {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}

	cfg, err := config.Load(filepath.Join(ws, "venvctl.yaml"))
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{
		DebugMode:  verbose || cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}
	if err := logging.Initialize(ws, logOpts); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	envs, err := registry.OpenEnvironments(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		workspace: ws,
		cfg:       cfg,
		envs:      envs,
		sessions:  registry.NewSessions(),
		index:     pypi.New(cfg.Registry.BaseURL, cfg.Registry.Timeout()),
		hub:       progress.NewHub(),
		sets:      sets.NewManager(cfg.Sets.Dir),
	}

	if err := a.buildRuntime(); err != nil {
		envs.Close()
		return nil, err
	}

	// Mirror operation progress on stderr.
	events, unsub := a.hub.Subscribe()
	a.unsub = unsub
	go func() {
		for ev := range events {
			prefix := "  "
			if ev.Level == progress.LevelError {
				prefix = "! "
			}
			fmt.Fprintln(os.Stderr, prefix+ev.Message)
		}
	}()

	a.mgr = pkgmgr.New(pkgmgr.Options{
		Gateway:            a.gw,
		Runner:             a.runner,
		Environments:       a.envs,
		Sessions:           a.sessions,
		Index:              a.index,
		Notifier:           a.hub,
		Execution:          cfg.Execution,
		DefaultEnvironment: cfg.Python.DefaultEnvironment,
	})
	return a, nil
}

// buildRuntime picks the interpreter backing: a persistent python worker
// by default, or the in-process simulated runtime under --simulate.
func (a *app) buildRuntime() error {
	if simulate || a.cfg.Python.Binary == "" {
		rt, err := interp.NewEmbeddedRuntime()
		if err != nil {
			return err
		}
		sim := cmdexec.NewSimulatedRunner(rt)
		for _, d := range simulatedCatalog {
			sim.AddToCatalog(d)
		}
		a.gw = gateway.New(rt)
		a.runner = sim
		return nil
	}

	a.gw = gateway.New(interp.NewPythonRuntime(a.cfg.Python.Binary))
	a.runner = &cmdexec.DirectRunner{
		DefaultTimeout: a.cfg.Execution.CommandTimeout(),
		Audit: func(cmd cmdexec.Command, res *cmdexec.Result) {
			logger.Debug("command finished",
				zap.String("cmd", cmd.CommandString()),
				zap.Int("exit", res.ExitCode),
				zap.Duration("duration", res.Duration))
		},
	}
	return nil
}

// simulatedCatalog seeds the installable universe under --simulate.
var simulatedCatalog = []types.Distribution{
	{Name: "numpy", Version: "1.26.4", Summary: "Fundamental package for array computing"},
	{Name: "pandas", Version: "2.2.2", Summary: "Powerful data structures for data analysis"},
	{Name: "requests", Version: "2.32.3", Summary: "Python HTTP for Humans"},
	{Name: "flask", Version: "3.0.3", Summary: "A simple framework for building web applications"},
	{Name: "pytest", Version: "8.2.0", Summary: "Simple powerful testing with Python"},
	{Name: "scikit-learn", Version: "1.5.0", Summary: "A set of python modules for machine learning"},
	{Name: "matplotlib", Version: "3.9.0", Summary: "Python plotting package"},
	{Name: "black", Version: "24.4.2", Summary: "The uncompromising code formatter"},
}

// configure binds the manager to the caller's session and environment.
func (a *app) configure(ctx context.Context) error {
	envID := ""
	if envRef != "" {
		env, err := a.resolveEnv(envRef)
		if err != nil {
			return err
		}
		envID = env.ID
	}
	return a.mgr.ConfigureForUser(ctx, principal(), envID)
}

// resolveEnv accepts an environment id or name.
func (a *app) resolveEnv(ref string) (*types.Environment, error) {
	env, err := a.envs.Get(ref)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env, err = a.envs.GetByName(ref)
		if err != nil {
			return nil, err
		}
	}
	if env == nil {
		return nil, types.NewConfigurationError("unknown environment %q", ref)
	}
	return env, nil
}

func (a *app) close() {
	if a.unsub != nil {
		a.unsub()
	}
	if a.gw != nil {
		_ = a.gw.Close()
	}
	if a.envs != nil {
		_ = a.envs.Close()
	}
	logging.CloseAll()
}

// principal resolves the session owner from the flag or the OS user.
func principal() string {
	if userName != "" {
		return userName
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

// opCtx builds the cancellable context every command runs under: bounded
// by --timeout and cancelled on SIGINT/SIGTERM.
func opCtx() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nCancelled")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
