package config

import (
	"os"
	"path/filepath"
)

// Application directory name used across all platforms.
const appName = "spacecache"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigPath returns the default config file location:
// the user config dir (XDG-aware via os.UserConfigDir) plus
// spacecache/config.toml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName, configFileName)
}

// DefaultCacheDir returns the default directory for the per-space
// database and state files.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName)
}

// DatabasePath returns the database file path for a space, one database
// per space id.
func DatabasePath(cacheDir, spaceID string) string {
	return filepath.Join(cacheDir, "space-"+spaceID+".db")
}

// StatePath returns the sync-state file path for a space.
func StatePath(cacheDir, spaceID string) string {
	return filepath.Join(cacheDir, "space-"+spaceID+".state.json")
}
