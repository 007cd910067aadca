package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, err)
	assert.Equal(t, defaultLookbackDays, cfg.Sync.LookbackDays)
	assert.Equal(t, defaultServeAddr, cfg.Serve.Addr)
	assert.Equal(t, 100*time.Millisecond, cfg.PageDelayDuration())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[sync]
lookback_days = 30
page_delay = "250ms"

[serve]
addr = "127.0.0.1:9090"

[logging]
level = "debug"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Sync.LookbackDays)
	assert.Equal(t, 250*time.Millisecond, cfg.PageDelayDuration())
	assert.Equal(t, "127.0.0.1:9090", cfg.Serve.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[sync]
lookback_dayz = 30
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
	assert.Contains(t, err.Error(), "lookback_dayz")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative lookback", func(c *Config) { c.Sync.LookbackDays = -1 }, "lookback_days"},
		{"bad page delay", func(c *Config) { c.Sync.PageDelay = "soon" }, "page_delay"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"valid", func(*Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.json")
	creds := &Credentials{APIKey: "key", APISecret: "secret", UserID: "12345678@N00"}

	require.NoError(t, SaveCredentials(path, creds))

	loaded, err := LoadCredentials(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, *creds, *loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(credFilePerms), info.Mode().Perm())
}

func TestCredentialsMissingFile(t *testing.T) {
	creds, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))

	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestCredentialsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_key": "only"}`), 0o600))

	_, err := LoadCredentials(path)
	require.Error(t, err)
}

func TestResolveDataDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultDataDir(), cfg.ResolveDataDir())

	cfg.Archive.DataDir = "/tmp/custom"
	assert.Equal(t, "/tmp/custom", cfg.ResolveDataDir())
}
