package config

import (
	"os"
	"path/filepath"
)

// Environment overrides for test and multi-profile setups.
const (
	// EnvHome overrides the data directory (default ~/.sc3kit).
	EnvHome = "SC3KIT_HOME"
	// EnvDB overrides the full path to the SQLite database file.
	EnvDB = "SC3KIT_DB"
	// EnvConfig overrides the settings file path.
	EnvConfig = "SC3KIT_CONFIG"
)

// DataDir returns the directory used to store sc3kit data.
func DataDir() (string, error) {
	if v := os.Getenv(EnvHome); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	// Use a dot-directory in the user's home on all platforms
	return filepath.Join(home, ".sc3kit"), nil
}

// EnsureDataDir creates the data directory if needed and returns its path.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

// DBPath returns the full path to the SQLite database file.
func DBPath() (string, error) {
	if v := os.Getenv(EnvDB); v != "" {
		return v, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "sc3kit.db"), nil
}

// SettingsPath returns the path to the TOML settings file.
func SettingsPath() (string, error) {
	if v := os.Getenv(EnvConfig); v != "" {
		return v, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// WorkspaceDir returns the directory used for pipeline checkouts.
func WorkspaceDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "workspace"), nil
}
