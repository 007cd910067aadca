// Package config implements TOML settings loading, the JSON credential
// file, and platform-specific path resolution for flickrarc. Settings,
// API credentials, and the session token live in three separate files:
// settings are editable configuration, credentials are long-lived
// secrets, and the session token is machine-written state.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level settings structure parsed from config.toml.
type Config struct {
	Archive ArchiveConfig `toml:"archive"`
	Sync    SyncConfig    `toml:"sync"`
	Serve   ServeConfig   `toml:"serve"`
	Logging LoggingConfig `toml:"logging"`
}

// ArchiveConfig controls where the database and thumbnails live.
type ArchiveConfig struct {
	// DataDir overrides the platform default data directory.
	DataDir string `toml:"data_dir"`
}

// SyncConfig controls sync engine behavior.
type SyncConfig struct {
	// LookbackDays bounds the photostream sweep to photos uploaded within
	// the window. 0 disables the bound and sweeps the full stream.
	LookbackDays int `toml:"lookback_days"`

	// PageDelay is the courtesy pause between page requests, e.g. "100ms".
	PageDelay string `toml:"page_delay"`
}

// ServeConfig controls the local browse UI.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// LoggingConfig controls the log level baseline. CLI flags override it.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Defaults for the zero-config first run.
const (
	defaultLookbackDays = 90
	defaultPageDelay    = "100ms"
	defaultServeAddr    = "127.0.0.1:8080"
	defaultLogLevel     = "info"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			LookbackDays: defaultLookbackDays,
			PageDelay:    defaultPageDelay,
		},
		Serve: ServeConfig{
			Addr: defaultServeAddr,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// Validate checks field values after decode. Unknown keys are handled
// separately by Load.
func Validate(cfg *Config) error {
	if cfg.Sync.LookbackDays < 0 {
		return fmt.Errorf("sync.lookback_days must not be negative (got %d)", cfg.Sync.LookbackDays)
	}

	if cfg.Sync.PageDelay != "" {
		if _, err := time.ParseDuration(cfg.Sync.PageDelay); err != nil {
			return fmt.Errorf("sync.page_delay: %w", err)
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", cfg.Logging.Level)
	}

	return nil
}

// PageDelayDuration returns the parsed page delay. Validate has already
// rejected unparseable values; an empty setting falls back to the default.
func (c *Config) PageDelayDuration() time.Duration {
	if c.Sync.PageDelay == "" {
		c.Sync.PageDelay = defaultPageDelay
	}

	d, err := time.ParseDuration(c.Sync.PageDelay)
	if err != nil {
		d, _ = time.ParseDuration(defaultPageDelay)
	}

	return d
}
