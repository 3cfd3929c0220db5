package pkgmgr

import (
	"path/filepath"
	"strings"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/cmdexec"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// errorMarkers are the transcript substrings treated as failure even when
// the process exited zero. Exit codes are the primary failure signal; the
// scan backstops package managers that report errors on a zero exit. The
// set is deliberately not exhaustive.
var errorMarkers = []string{
	"ERROR:",
	"error:",
	"Could not find a version",
	"No matching distribution found",
	"PackagesNotFoundError",
	"CondaError",
}

func containsErrorMarker(transcript string) bool {
	for _, marker := range errorMarkers {
		if strings.Contains(transcript, marker) {
			return true
		}
	}
	return false
}

// commandSucceeded classifies a finished invocation.
func commandSucceeded(res *cmdexec.Result) bool {
	return res.Succeeded() && !containsErrorMarker(res.Combined)
}

// managerBinary resolves the package manager executable for an environment.
// Conda manages environments from a shared binary; pip lives inside each
// environment's bin directory.
func managerBinary(env *types.Environment) string {
	if env.Binary == types.BinaryConda {
		return "conda"
	}
	if env.Root == "" {
		return "pip"
	}
	return filepath.Join(env.Root, "bin", "pip")
}

// selfName is the package name under which the package manager upgrades
// itself, which uses a dedicated verb on some managers.
func selfName(env *types.Environment) string {
	if env.Binary == types.BinaryConda {
		return "conda"
	}
	return "pip"
}

func (m *Manager) installCommand(spec string) cmdexec.Command {
	env := m.env
	cmd := cmdexec.Command{
		Binary:  managerBinary(env),
		Timeout: m.execCfg.InstallTimeout(),
	}
	if env.Binary == types.BinaryConda {
		cmd.Arguments = []string{"install", "-c", "conda-forge", "-y", spec}
	} else {
		cmd.Arguments = []string{"install", "-U", spec}
	}
	return cmd
}

func (m *Manager) uninstallCommand(name string) cmdexec.Command {
	env := m.env
	cmd := cmdexec.Command{
		Binary:  managerBinary(env),
		Timeout: m.execCfg.CommandTimeout(),
	}
	if env.Binary == types.BinaryConda {
		cmd.Arguments = []string{"remove", "-y", name}
	} else {
		cmd.Arguments = []string{"uninstall", "-y", name}
	}
	return cmd
}

func (m *Manager) upgradeCommand(name string) cmdexec.Command {
	env := m.env
	cmd := cmdexec.Command{
		Binary:  managerBinary(env),
		Timeout: m.execCfg.InstallTimeout(),
	}
	if env.Binary == types.BinaryConda {
		if types.PackageKey(name) == selfName(env) {
			cmd.Arguments = []string{"update", "-y", "conda"}
		} else {
			cmd.Arguments = []string{"update", "-y", name}
		}
		return cmd
	}
	// pip upgrades itself with its own install verb.
	cmd.Arguments = []string{"install", "--upgrade", name}
	return cmd
}

// stripConstraint drops a version specifier from an install spec, leaving
// the bare package name.
func stripConstraint(spec string) string {
	if i := strings.IndexAny(spec, "=><~!"); i >= 0 {
		return strings.TrimSpace(spec[:i])
	}
	return strings.TrimSpace(spec)
}
