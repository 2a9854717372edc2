// Package config provides configuration types and defaults for specforge
// Centralized management of all constants and default values

package config

import (
	"os"
	"path/filepath"
)

// ===== Limits =====

const (
	// DefaultContextWindow is used when a model's window cannot be determined
	DefaultContextWindow = 8192

	// CompletionReserve is held back from the context window so the model
	// has room to finish its reply
	CompletionReserve = 100

	// DefaultCacheTTLHours is how long generated specs stay in the cache
	DefaultCacheTTLHours = 24
)

// ===== Paths =====

// DefaultDataDir returns the default data directory (~/.specforge)
func DefaultDataDir() string {
	if d := os.Getenv("SPECFORGE_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "specforge")
	}
	return filepath.Join(home, ".specforge")
}

// DefaultWorkspaceDir returns the directory where generated resources are written
func DefaultWorkspaceDir() string {
	if d := os.Getenv("SPECFORGE_WORKSPACE"); d != "" {
		return d
	}
	return filepath.Join(DefaultDataDir(), "workspace")
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	if p := os.Getenv("SPECFORGE_DB_PATH"); p != "" {
		return p
	}
	return filepath.Join(DefaultDataDir(), "specforge.db")
}

// DefaultCacheDir returns the badger cache directory
func DefaultCacheDir() string {
	if d := os.Getenv("SPECFORGE_CACHE_DIR"); d != "" {
		return d
	}
	return filepath.Join(DefaultDataDir(), "cache")
}

// DefaultEnvConfigPath returns the env.config path in the data dir
func DefaultEnvConfigPath() string {
	return filepath.Join(DefaultDataDir(), "env.config")
}

// DefaultProfilePath returns the agent profile path in the data dir
func DefaultProfilePath() string {
	if p := os.Getenv("SPECFORGE_PROFILE"); p != "" {
		return p
	}
	return filepath.Join(DefaultDataDir(), "profile.yaml")
}

// StorageConfig holds storage settings
type StorageConfig struct {
	DBPath string
}

// DefaultStorageConfig returns storage defaults
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{DBPath: DefaultDBPath()}
}

// EnsureDataDirs creates the data, workspace, and cache directories
func EnsureDataDirs() error {
	for _, d := range []string{DefaultDataDir(), DefaultWorkspaceDir(), DefaultCacheDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
