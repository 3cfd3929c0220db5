// Package registry provides the catalogs the engine operates over: a
// SQLite-backed environment catalog that survives process restarts, and an
// in-memory session registry binding principals to environments.
package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS environments (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL UNIQUE,
	python_version    TEXT NOT NULL DEFAULT '',
	root              TEXT NOT NULL DEFAULT '',
	binary            TEXT NOT NULL DEFAULT 'pip',
	requirements_path TEXT NOT NULL DEFAULT '',
	last_sync         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS packages (
	env_id            TEXT NOT NULL,
	name              TEXT NOT NULL,
	version           TEXT NOT NULL DEFAULT '',
	available_version TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'installed',
	category          TEXT NOT NULL DEFAULT 'uncategorized',
	description       TEXT NOT NULL DEFAULT '',
	install_path      TEXT NOT NULL DEFAULT '',
	action            TEXT NOT NULL DEFAULT 'Status',
	PRIMARY KEY (env_id, name),
	FOREIGN KEY (env_id) REFERENCES environments(id) ON DELETE CASCADE
);
`

// Environments is the persistent environment catalog.
type Environments struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// OpenEnvironments initializes the SQLite catalog at the given path.
func OpenEnvironments(path string) (*Environments, error) {
	timer := logging.StartTimer(logging.CategoryRegistry, "OpenEnvironments")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.RegistryDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.RegistryDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.RegistryDebug("Failed to enable foreign keys: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Registry("Environment catalog opened at %s", path)
	return &Environments{db: db, dbPath: path}, nil
}

// Close closes the underlying database.
func (r *Environments) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// Save upserts the environment row and replaces its package rows.
func (r *Environments) Save(env *types.Environment) error {
	if env == nil || env.ID == "" {
		return fmt.Errorf("environment with an id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO environments
		(id, name, python_version, root, binary, requirements_path, last_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			python_version=excluded.python_version,
			root=excluded.root,
			binary=excluded.binary,
			requirements_path=excluded.requirements_path,
			last_sync=excluded.last_sync`,
		env.ID, env.Name, env.PythonVersion, env.Root, string(env.Binary),
		env.RequirementsPath, env.LastSync.Unix())
	if err != nil {
		return fmt.Errorf("failed to save environment %s: %w", env.Name, err)
	}

	if _, err := tx.Exec(`DELETE FROM packages WHERE env_id = ?`, env.ID); err != nil {
		return fmt.Errorf("failed to clear package rows: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO packages
		(env_id, name, version, available_version, status, category, description, install_path, action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare package insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range env.Packages() {
		if _, err := stmt.Exec(env.ID, types.PackageKey(rec.Name), rec.Version,
			rec.AvailableVersion, string(rec.Status), string(rec.Category),
			rec.Description, rec.InstallPath, string(rec.Action)); err != nil {
			return fmt.Errorf("failed to save package %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	logging.RegistryDebug("Saved environment %s (%d packages)", env.Name, env.PackageCount())
	return nil
}

// Get hydrates an environment and its package records by id.
func (r *Environments) Get(id string) (*types.Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load("id = ?", id)
}

// GetByName hydrates an environment and its package records by name.
func (r *Environments) GetByName(name string) (*types.Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load("name = ?", name)
}

func (r *Environments) load(where string, arg interface{}) (*types.Environment, error) {
	row := r.db.QueryRow(`SELECT id, name, python_version, root, binary,
		requirements_path, last_sync FROM environments WHERE `+where, arg)

	var env types.Environment
	var binary string
	var lastSync int64
	err := row.Scan(&env.ID, &env.Name, &env.PythonVersion, &env.Root, &binary,
		&env.RequirementsPath, &lastSync)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	env.Binary = types.BinaryKind(binary)
	if lastSync > 0 {
		env.LastSync = time.Unix(lastSync, 0)
	}

	rows, err := r.db.Query(`SELECT name, version, available_version, status,
		category, description, install_path, action
		FROM packages WHERE env_id = ? ORDER BY name`, env.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package rows: %w", err)
	}
	defer rows.Close()

	hydrated := types.NewEnvironment(env.ID, env.Name)
	hydrated.PythonVersion = env.PythonVersion
	hydrated.Root = env.Root
	hydrated.Binary = env.Binary
	hydrated.RequirementsPath = env.RequirementsPath
	hydrated.LastSync = env.LastSync

	for rows.Next() {
		var rec types.PackageRecord
		var status, category, action string
		if err := rows.Scan(&rec.Name, &rec.Version, &rec.AvailableVersion,
			&status, &category, &rec.Description, &rec.InstallPath, &action); err != nil {
			return nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		rec.Status = types.PackageStatus(status)
		rec.Category = types.Category(category)
		rec.Action = types.PackageAction(action)
		hydrated.Upsert(&rec)
	}
	return hydrated, rows.Err()
}

// List returns every registered environment, hydrated.
func (r *Environments) List() ([]*types.Environment, error) {
	r.mu.Lock()
	ids := []string{}
	rows, err := r.db.Query(`SELECT id FROM environments ORDER BY name`)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			r.mu.Unlock()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	r.mu.Unlock()

	envs := make([]*types.Environment, 0, len(ids))
	for _, id := range ids {
		env, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if env != nil {
			envs = append(envs, env)
		}
	}
	return envs, nil
}

// Remove deletes an environment and its packages.
func (r *Environments) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.Exec(`DELETE FROM packages WHERE env_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete package rows: %w", err)
	}
	if _, err := r.db.Exec(`DELETE FROM environments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete environment: %w", err)
	}
	return nil
}

// MarkStale zeroes an environment's sync timestamp so the next operation
// knows the on-disk state moved underneath it.
func (r *Environments) MarkStale(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`UPDATE environments SET last_sync = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark environment stale: %w", err)
	}
	logging.Registry("Environment %s marked stale", id)
	return nil
}

// ResolveDefault picks the environment to use when a caller names none:
// the sole registered environment, else the configured default name.
func (r *Environments) ResolveDefault(defaultName string) (*types.Environment, error) {
	envs, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(envs) == 1 {
		return envs[0], nil
	}
	if defaultName != "" {
		for _, env := range envs {
			if env.Name == defaultName {
				return env, nil
			}
		}
	}
	return nil, types.NewConfigurationError(
		"no environment specified and no default could be resolved (%d registered)", len(envs))
}
