package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Credential file permissions mirror the token file: owner-only.
const (
	credFilePerms = 0o600
	credDirPerms  = 0o700
)

// Credentials is the JSON credential file: the static API key pair and
// the target user whose archive is synchronized. Independent from the
// session token, which the authorization handshake writes separately.
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	UserID    string `json:"user_id"`
}

// LoadCredentials reads the credential file. Returns (nil, nil) if the
// file does not exist — callers prompt for credentials on first run.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("config: reading credentials %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("config: decoding credentials %s: %w", path, err)
	}

	if creds.APIKey == "" || creds.APISecret == "" || creds.UserID == "" {
		return nil, fmt.Errorf("config: credentials %s missing api_key, api_secret, or user_id", path)
	}

	return &creds, nil
}

// SaveCredentials writes the credential file with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), credDirPerms); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, credFilePerms); err != nil {
		return fmt.Errorf("config: writing credentials %s: %w", path, err)
	}

	return nil
}
