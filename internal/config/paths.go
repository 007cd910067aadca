package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "flickrarc"

// File names within the config and data directories.
const (
	configFileName      = "config.toml"
	credentialsFileName = "credentials.json"
	tokenFileName       = "session_token.json"
	databaseFileName    = "archive.db"
	thumbnailsDirName   = "thumbnails"
)

// DefaultConfigDir returns the platform-specific directory for config
// files. On Linux, respects XDG_CONFIG_HOME (defaults to
// ~/.config/flickrarc). On macOS, uses ~/Library/Application Support
// per Apple guidelines.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".config", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for application
// data (database, thumbnails). On Linux, respects XDG_DATA_HOME
// (defaults to ~/.local/share/flickrarc). macOS collapses config and
// data into one directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".local", "share", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// DefaultConfigPath returns the full path to config.toml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), configFileName)
}

// DefaultCredentialsPath returns the full path to the API credential file.
func DefaultCredentialsPath() string {
	return filepath.Join(DefaultConfigDir(), credentialsFileName)
}

// DefaultTokenPath returns the full path to the session token file.
func DefaultTokenPath() string {
	return filepath.Join(DefaultConfigDir(), tokenFileName)
}

// DatabasePath returns the archive database path under dataDir.
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, databaseFileName)
}

// ThumbnailsDir returns the flat thumbnail directory under dataDir.
func ThumbnailsDir(dataDir string) string {
	return filepath.Join(dataDir, thumbnailsDirName)
}

// ResolveDataDir applies the archive.data_dir override, falling back to
// the platform default.
func (c *Config) ResolveDataDir() string {
	if c.Archive.DataDir != "" {
		return c.Archive.DataDir
	}

	return DefaultDataDir()
}
