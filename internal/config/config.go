// Package config loads and validates venvctl configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all venvctl configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Python interpreter settings
	Python PythonConfig `yaml:"python"`

	// Environment catalog storage
	Database DatabaseConfig `yaml:"database"`

	// Online package registry lookups
	Registry RegistryConfig `yaml:"registry"`

	// Package operation execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Package set definitions
	Sets SetsConfig `yaml:"sets"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PythonConfig configures the interpreter runtime.
type PythonConfig struct {
	// Binary is the python executable used for the embedded runtime worker.
	// Empty means use the in-process simulated runtime.
	Binary string `yaml:"binary"`

	// DefaultEnvironment names the environment used when a caller does not
	// pick one explicitly and more than one is registered.
	DefaultEnvironment string `yaml:"default_environment"`
}

// DatabaseConfig configures the SQLite environment catalog.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig configures the online package index client.
type RegistryConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the lookup timeout as a duration.
func (r RegistryConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// ExecutionConfig configures package operation behavior.
type ExecutionConfig struct {
	// BatchSize is how many packages a bulk listing processes per batch.
	BatchSize int `yaml:"batch_size"`

	// BatchYieldMs is the cooperative pause between batches so a host event
	// loop is not starved during long listings.
	BatchYieldMs int `yaml:"batch_yield_ms"`

	// CommandTimeoutSeconds bounds short package manager invocations.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`

	// InstallTimeoutSeconds bounds installs, which can be much slower.
	InstallTimeoutSeconds int `yaml:"install_timeout_seconds"`
}

// BatchYield returns the inter-batch pause as a duration.
func (e ExecutionConfig) BatchYield() time.Duration {
	if e.BatchYieldMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(e.BatchYieldMs) * time.Millisecond
}

// CommandTimeout returns the short-command timeout as a duration.
func (e ExecutionConfig) CommandTimeout() time.Duration {
	if e.CommandTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.CommandTimeoutSeconds) * time.Second
}

// InstallTimeout returns the install timeout as a duration.
func (e ExecutionConfig) InstallTimeout() time.Duration {
	if e.InstallTimeoutSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(e.InstallTimeoutSeconds) * time.Second
}

// SetsConfig configures named package set storage.
type SetsConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig mirrors the options consumed by the logging package.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the default configuration rooted at workspace.
func Default(workspace string) *Config {
	return &Config{
		Name:    "venvctl",
		Version: "1.0.0",
		Python: PythonConfig{
			Binary: "python3",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(workspace, ".venvctl", "catalog.db"),
		},
		Registry: RegistryConfig{
			BaseURL:        "https://pypi.org",
			TimeoutSeconds: 3,
		},
		Execution: ExecutionConfig{
			BatchSize:             10,
			BatchYieldMs:          50,
			CommandTimeoutSeconds: 60,
			InstallTimeoutSeconds: 600,
		},
		Sets: SetsConfig{
			Dir: filepath.Join(workspace, ".venvctl", "sets"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, filling unset fields with defaults rooted
// at the file's directory. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	workspace := filepath.Dir(path)
	cfg := Default(workspace)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config back to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
