// Package types holds the shared domain model for the environment and
// package management engine: environments, sessions, package records, and
// the error taxonomy every layer reports through.
package types

import (
	"strings"
	"sync"
	"time"
)

// BinaryKind identifies which external package manager drives an environment.
type BinaryKind string

const (
	BinaryPip   BinaryKind = "pip"
	BinaryConda BinaryKind = "conda"
)

// PackageStatus is the lifecycle status of a package record.
type PackageStatus string

const (
	StatusInstalled PackageStatus = "installed"
	StatusAvailable PackageStatus = "available"
	StatusError     PackageStatus = "error"
)

// PackageAction is the UI hint derived from version comparison.
type PackageAction string

const (
	// ActionUpdate means a newer version is known to exist online.
	ActionUpdate PackageAction = "Update"
	// ActionStatus means no update is known (or versions were not comparable).
	ActionStatus PackageAction = "Status"
)

// Category is the closed classification enumeration for packages.
type Category string

const (
	CategoryUncategorized   Category = "uncategorized"
	CategoryMachineLearning Category = "machine-learning"
	CategoryDataScience     Category = "data-science"
	CategoryVisualization   Category = "visualization"
	CategoryWebDevelopment  Category = "web-development"
	CategoryDatabase        Category = "database"
	CategoryNetworking      Category = "networking"
	CategoryTesting         Category = "testing"
	CategoryDevTools        Category = "dev-tools"
	CategoryScientific      Category = "scientific"
	CategorySecurity        Category = "security"
	CategoryUtilities       Category = "utilities"
)

// Categories lists every category in its canonical order. The order matters:
// keyword-score ties resolve to the first category seen, and generated
// requirements files group packages in this order.
var Categories = []Category{
	CategoryMachineLearning,
	CategoryDataScience,
	CategoryVisualization,
	CategoryWebDevelopment,
	CategoryDatabase,
	CategoryNetworking,
	CategoryTesting,
	CategoryDevTools,
	CategoryScientific,
	CategorySecurity,
	CategoryUtilities,
	CategoryUncategorized,
}

// PackageRecord is the engine's local knowledge of one installed package.
// Dynamic values coming back from interpreter introspection are deserialized
// into this fixed shape at the boundary and never passed along untyped.
type PackageRecord struct {
	Name             string        `json:"name"`
	Version          string        `json:"version"`
	AvailableVersion string        `json:"available_version,omitempty"`
	Status           PackageStatus `json:"status"`
	Category         Category      `json:"category"`
	Description      string        `json:"description,omitempty"`
	InstallPath      string        `json:"install_path,omitempty"`
	Action           PackageAction `json:"action"`
}

// Distribution is the raw record emitted by an interpreter introspection
// script, one entry per installed distribution.
type Distribution struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Summary  string `json:"summary"`
	Location string `json:"location"`
}

// Record converts a raw distribution into a package record.
func (d Distribution) Record() *PackageRecord {
	return &PackageRecord{
		Name:        d.Name,
		Version:     d.Version,
		Status:      StatusInstalled,
		Category:    CategoryUncategorized,
		Description: d.Summary,
		InstallPath: d.Location,
		Action:      ActionStatus,
	}
}

// Environment is an isolated Python installation with its own package set.
// The package collection is mutated only by the operation engine and the
// requirements manager; concurrent readers go through the accessor methods.
type Environment struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	PythonVersion    string     `json:"python_version"`
	Root             string     `json:"root"`
	Binary           BinaryKind `json:"binary"`
	RequirementsPath string     `json:"requirements_path,omitempty"`
	LastSync         time.Time  `json:"last_sync"`

	mu       sync.RWMutex
	packages map[string]*PackageRecord
}

// NewEnvironment creates an environment with an empty package collection.
func NewEnvironment(id, name string) *Environment {
	return &Environment{
		ID:       id,
		Name:     name,
		Binary:   BinaryPip,
		packages: make(map[string]*PackageRecord),
	}
}

// PackageKey normalizes a package name for case-insensitive identity.
func PackageKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Package returns the record for name, if known. Lookup is case-insensitive.
func (e *Environment) Package(name string) (*PackageRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.packages[PackageKey(name)]
	return rec, ok
}

// Packages returns a snapshot slice of all known records.
func (e *Environment) Packages() []*PackageRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*PackageRecord, 0, len(e.packages))
	for _, rec := range e.packages {
		out = append(out, rec)
	}
	return out
}

// PackageCount returns the number of known records.
func (e *Environment) PackageCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.packages)
}

// Upsert inserts or replaces a record, keyed by the normalized name.
func (e *Environment) Upsert(rec *PackageRecord) {
	if rec == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.packages == nil {
		e.packages = make(map[string]*PackageRecord)
	}
	e.packages[PackageKey(rec.Name)] = rec
}

// Remove deletes a record. Returns true if it existed.
func (e *Environment) Remove(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := PackageKey(name)
	if _, ok := e.packages[key]; !ok {
		return false
	}
	delete(e.packages, key)
	return true
}

// ReplacePackages swaps the whole collection, used after a full listing.
func (e *Environment) ReplacePackages(recs []*PackageRecord) {
	fresh := make(map[string]*PackageRecord, len(recs))
	for _, rec := range recs {
		fresh[PackageKey(rec.Name)] = rec
	}
	e.mu.Lock()
	e.packages = fresh
	e.mu.Unlock()
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionCreated SessionStatus = "created"
	SessionActive  SessionStatus = "active"
	SessionClosed  SessionStatus = "closed"
)

// Session binds one principal to exactly one environment and one interpreter
// execution scope. The environment reference never changes after creation;
// re-binding requires a new session.
type Session struct {
	ID            string        `json:"id"`
	User          string        `json:"user"`
	EnvironmentID string        `json:"environment_id"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
