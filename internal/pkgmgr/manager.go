// Package pkgmgr is the package operation engine: install, uninstall,
// upgrade, inspect, and list packages inside a bound environment, with all
// interpreter access routed through the serialized gateway.
package pkgmgr

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/cmdexec"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/config"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/gateway"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/progress"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/pypi"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/registry"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Options wires a Manager's collaborators.
type Options struct {
	Gateway      *gateway.Gateway
	Runner       cmdexec.Runner
	Environments *registry.Environments // optional; nil disables persistence
	Sessions     *registry.Sessions
	Index        *pypi.Client // optional; nil disables online checks
	Notifier     progress.Notifier
	Execution    config.ExecutionConfig

	// DefaultEnvironment names the environment ConfigureForUser falls back
	// to when the catalog holds more than one.
	DefaultEnvironment string
}

// Manager executes package operations for exactly one configured
// session/environment pair. Public operations never overlap on one
// instance: a second caller gets ErrBusy immediately instead of queuing.
type Manager struct {
	gw       *gateway.Gateway
	runner   cmdexec.Runner
	envs     *registry.Environments
	sessions *registry.Sessions
	index    *pypi.Client
	notify   progress.Notifier
	execCfg  config.ExecutionConfig

	defaultEnv string

	busy       atomic.Bool
	configured atomic.Bool
	session    *types.Session
	env        *types.Environment
}

// New creates an unconfigured manager.
func New(opts Options) *Manager {
	notify := opts.Notifier
	if notify == nil {
		notify = progress.Nop{}
	}
	return &Manager{
		gw:         opts.Gateway,
		runner:     opts.Runner,
		envs:       opts.Environments,
		sessions:   opts.Sessions,
		index:      opts.Index,
		notify:     notify,
		execCfg:    opts.Execution,
		defaultEnv: opts.DefaultEnvironment,
	}
}

// Configure binds the manager to a session/environment pair and warms up
// the interpreter scope. Everything else requires a prior successful
// Configure.
func (m *Manager) Configure(ctx context.Context, session *types.Session, env *types.Environment) error {
	if session == nil || env == nil {
		return types.NewConfigurationError("session and environment are required")
	}
	if session.Status != types.SessionActive {
		return types.NewConfigurationError("session %s is %s, not active", session.ID, session.Status)
	}
	if session.EnvironmentID != env.ID {
		return types.NewConfigurationError(
			"session %s is bound to environment %s, not %s", session.ID, session.EnvironmentID, env.ID)
	}

	// Rebinding under an in-flight operation would swap the environment
	// out from under it, so Configure competes for the same guard.
	if !m.busy.CompareAndSwap(false, true) {
		return types.ErrBusy
	}
	defer m.end()

	// Scope creation: surface interpreter failures now, not on first use.
	if err := m.gw.Warmup(ctx); err != nil {
		return err
	}

	m.session = session
	m.env = env
	m.configured.Store(true)
	logging.Session("Manager configured: session %s, environment %s", session.ID, env.Name)
	m.notify.Progressf("Configured session for environment %s", env.Name)
	return nil
}

// ConfigureForUser mints or reuses a session for the user, resolves the
// environment (explicit id or the default-selection policy), and delegates
// to Configure.
func (m *Manager) ConfigureForUser(ctx context.Context, user, environmentID string) error {
	if user == "" {
		return types.NewConfigurationError("user is required")
	}
	if m.envs == nil {
		return types.NewConfigurationError("no environment catalog configured")
	}

	var env *types.Environment
	var err error
	if environmentID != "" {
		env, err = m.envs.Get(environmentID)
		if err != nil {
			return err
		}
		if env == nil {
			return types.NewConfigurationError("environment %s not found", environmentID)
		}
	} else {
		env, err = m.envs.ResolveDefault(m.defaultEnv)
		if err != nil {
			return err
		}
	}

	session, err := m.sessions.ForUser(user, env.ID)
	if err != nil {
		return err
	}
	return m.Configure(ctx, session, env)
}

// Environment returns the bound environment, or nil before Configure.
func (m *Manager) Environment() *types.Environment { return m.env }

// Session returns the bound session, or nil before Configure.
func (m *Manager) Session() *types.Session { return m.session }

// begin acquires the per-instance busy guard. Operations requested while
// another is in flight are rejected, not queued.
func (m *Manager) begin() error {
	if !m.configured.Load() {
		return types.NewConfigurationError("manager is not configured with a session and environment")
	}
	if !m.busy.CompareAndSwap(false, true) {
		return types.ErrBusy
	}
	return nil
}

func (m *Manager) end() {
	m.busy.Store(false)
}

// touchSync stamps the environment and persists it when a catalog is wired.
func (m *Manager) touchSync() {
	m.env.LastSync = time.Now()
	if m.envs == nil {
		return
	}
	if err := m.envs.Save(m.env); err != nil {
		logging.Get(logging.CategoryPackages).Warn("Failed to persist environment %s: %v", m.env.Name, err)
	}
}
