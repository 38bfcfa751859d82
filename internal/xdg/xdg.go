// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg provides helpers to resolve XDG Base Directory paths for assistbridge.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files, cached catalog data and downloaded models.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and creates every directory with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base.
const AppName = "assistbridge"

// resolve returns <$env or ~/fallback...>/assistbridge, creating it with 0700.
func resolve(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// ConfigDir returns the XDG config directory for assistbridge.
// It falls back to ~/.config/assistbridge when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for assistbridge.
// It falls back to ~/.local/state/assistbridge when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the XDG cache directory, home of the catalog cache database.
// It falls back to ~/.cache/assistbridge when XDG_CACHE_HOME is unset.
func CacheDir() (string, error) {
	return resolve("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the XDG data directory, whose models/ subdirectory is the default models dir.
// It falls back to ~/.local/share/assistbridge when XDG_DATA_HOME is unset.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}
