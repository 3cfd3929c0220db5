// Package sets manages named package bundles used for templated bulk
// installs. Definitions are TOML files in a sets directory; a few starter
// sets ship built in and can be shadowed by a file of the same name.
package sets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/requirements"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// SetDefinition is a named ordered list of package specs. Entries may carry
// version constraints ("numpy==1.24.0") or be bare names.
type SetDefinition struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Packages    []string `toml:"packages"`
}

// builtins ship with the binary and cover the common starting points.
var builtins = map[string]SetDefinition{
	"data-science": {
		Name:        "data-science",
		Description: "Core numeric and dataframe stack",
		Packages:    []string{"numpy", "pandas", "matplotlib", "scipy", "jupyter"},
	},
	"web": {
		Name:        "web",
		Description: "HTTP clients and web frameworks",
		Packages:    []string{"requests", "flask", "fastapi", "uvicorn"},
	},
	"testing": {
		Name:        "testing",
		Description: "Test runners and quality tooling",
		Packages:    []string{"pytest", "pytest-cov", "black", "flake8"},
	},
}

var setNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Manager reads and writes set definitions under a single directory.
type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name+".toml")
}

// Get resolves a set by name, preferring a definition file over a built-in.
func (m *Manager) Get(name string) (*SetDefinition, error) {
	if !setNamePattern.MatchString(name) {
		return nil, types.NewConfigurationError("invalid set name %q", name)
	}
	data, err := os.ReadFile(m.path(name))
	if err == nil {
		var def SetDefinition
		if err := toml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse set %s: %w", name, err)
		}
		if def.Name == "" {
			def.Name = name
		}
		return &def, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read set %s: %w", name, err)
	}
	if def, ok := builtins[name]; ok {
		return &def, nil
	}
	return nil, types.NewConfigurationError("unknown package set %q", name)
}

// List returns every available set, built-ins included, sorted by name.
func (m *Manager) List() ([]SetDefinition, error) {
	byName := make(map[string]SetDefinition, len(builtins))
	for name, def := range builtins {
		byName[name] = def
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read sets directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		def, err := m.Get(name)
		if err != nil {
			logging.Sets("Skipping unreadable set %s: %v", name, err)
			continue
		}
		byName[name] = *def
	}

	out := make([]SetDefinition, 0, len(byName))
	for _, def := range byName {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Save persists a definition as a TOML file in the sets directory.
func (m *Manager) Save(def *SetDefinition) error {
	if !setNamePattern.MatchString(def.Name) {
		return types.NewConfigurationError("invalid set name %q", def.Name)
	}
	if len(def.Packages) == 0 {
		return types.NewConfigurationError("set %q has no packages", def.Name)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create sets directory: %w", err)
	}
	data, err := toml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode set %s: %w", def.Name, err)
	}
	if err := os.WriteFile(m.path(def.Name), data, 0o644); err != nil {
		return fmt.Errorf("write set %s: %w", def.Name, err)
	}
	logging.Sets("Saved set %s (%d packages)", def.Name, len(def.Packages))
	return nil
}

// Delete removes a set definition file. Built-ins cannot be deleted, only
// shadowed.
func (m *Manager) Delete(name string) error {
	if !setNamePattern.MatchString(name) {
		return types.NewConfigurationError("invalid set name %q", name)
	}
	err := os.Remove(m.path(name))
	if os.IsNotExist(err) {
		if _, ok := builtins[name]; ok {
			return types.NewConfigurationError("set %q is built in and cannot be deleted", name)
		}
		return types.NewConfigurationError("unknown package set %q", name)
	}
	return err
}

// Document expands a set into a synthetic requirements document.
func (def *SetDefinition) Document() *requirements.Document {
	doc := requirements.NewDocument()
	for _, spec := range def.Packages {
		name, constraint := spec, ""
		if idx := strings.IndexAny(spec, "=><~!"); idx >= 0 {
			name = strings.TrimSpace(spec[:idx])
			constraint = strings.TrimSpace(spec[idx:])
		}
		doc.Add(name, constraint)
	}
	return doc
}

// InstallSet expands the named set and routes it through the requirements
// batch installer. Same partial-failure semantics as applying a file.
func (m *Manager) InstallSet(ctx context.Context, inst requirements.Installer, name string) (bool, error) {
	def, err := m.Get(name)
	if err != nil {
		return false, err
	}
	logging.Sets("Installing set %s (%d packages)", def.Name, len(def.Packages))
	return requirements.InstallDocument(ctx, inst, def.Document())
}

// SaveFromEnvironment snapshots the environment's installed package names
// into a new set definition.
func (m *Manager) SaveFromEnvironment(name, description string, env *types.Environment, includeVersions bool) (*SetDefinition, error) {
	records := env.Packages()
	if len(records) == 0 {
		return nil, types.NewConfigurationError("environment %s has no packages to snapshot", env.Name)
	}
	sort.Slice(records, func(i, j int) bool {
		return types.PackageKey(records[i].Name) < types.PackageKey(records[j].Name)
	})

	def := &SetDefinition{Name: name, Description: description}
	for _, rec := range records {
		spec := rec.Name
		if includeVersions && rec.Version != "" {
			spec = rec.Name + "==" + rec.Version
		}
		def.Packages = append(def.Packages, spec)
	}
	if err := m.Save(def); err != nil {
		return nil, err
	}
	return def, nil
}
