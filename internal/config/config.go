// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the catalog token goes to the OS keychain.
//
// The file may be TOML, YAML or JSON; the format is picked by extension. Values
// missing from the file keep their defaults, and a missing file yields Default().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"assistbridge/cli/internal/xdg"
)

// Environment overrides.
const (
	EnvConfig   = "ASSISTBRIDGE_CONFIG"
	EnvBackend  = "ASSISTBRIDGE_BACKEND"
	EnvListen   = "ASSISTBRIDGE_LISTEN"
	EnvLogLevel = "ASSISTBRIDGE_LOG_LEVEL"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	BackendAddr string          `json:"backend_addr" yaml:"backend_addr" toml:"backend_addr"`
	ListenAddr  string          `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	ModelsDir   string          `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	CallTimeout Duration        `json:"call_timeout" yaml:"call_timeout" toml:"call_timeout"`
	ExitTimeout Duration        `json:"exit_timeout" yaml:"exit_timeout" toml:"exit_timeout"`
	LogLevel    string          `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogJSON     bool            `json:"log_json" yaml:"log_json" toml:"log_json"`
	Catalog     CatalogConfig   `json:"catalog" yaml:"catalog" toml:"catalog"`
	Thumbnail   ThumbnailConfig `json:"thumbnail" yaml:"thumbnail" toml:"thumbnail"`
}

// CatalogConfig configures the MCP catalog client and its local cache.
type CatalogConfig struct {
	BaseURL   string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	UserAgent string   `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
	Timeout   Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	CacheTTL  Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
	// CachePath overrides the SQLite cache location; empty means <cache dir>/catalog.db.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty" toml:"cache_path,omitempty"`
}

// ThumbnailConfig is the bounding box for generated thumbnails.
type ThumbnailConfig struct {
	MaxWidth  int `json:"max_width" yaml:"max_width" toml:"max_width"`
	MaxHeight int `json:"max_height" yaml:"max_height" toml:"max_height"`
}

// Duration is a time.Duration written as a Go duration string ("60s", "24h") in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendAddr: "localhost:5006",
		ListenAddr:  "127.0.0.1:6225",
		CallTimeout: Duration(60 * time.Second),
		ExitTimeout: Duration(5 * time.Second),
		LogLevel:    "info",
		Catalog: CatalogConfig{
			BaseURL:   "https://www.modelscope.cn/openapi/v1",
			UserAgent: "IntelAIA/2.2.0",
			Timeout:   Duration(30 * time.Second),
			CacheTTL:  Duration(24 * time.Hour),
		},
		Thumbnail: ThumbnailConfig{MaxWidth: 48, MaxHeight: 48},
	}
}

// candidates lists the file names Load looks for, in order.
var candidates = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// Path returns the config file in use: $ASSISTBRIDGE_CONFIG, else the first existing
// candidate in the XDG config dir, else <config dir>/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return filepath.Join(dir, candidates[0]), nil
}

// Load reads configuration; missing file returns defaults. Environment overrides
// are applied last.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	c, err := LoadFile(p)
	if err != nil {
		return c, err
	}
	applyEnv(&c)
	return c, c.finish()
}

// LoadFile reads one file over the defaults, picking the decoder by extension.
// Supports: .toml, .yaml/.yml, .json. A missing file yields defaults.
func LoadFile(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(b, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &c)
	case ".json":
		err = json.Unmarshal(b, &c)
	default:
		return c, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvBackend); v != "" {
		c.BackendAddr = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// finish fills derived defaults and rejects unusable values.
func (c *Config) finish() error {
	if c.ModelsDir == "" {
		dir, err := xdg.DataDir()
		if err != nil {
			return err
		}
		c.ModelsDir = filepath.Join(dir, "models")
	}
	if strings.TrimSpace(c.BackendAddr) == "" {
		return errors.New("backend_addr must not be empty")
	}
	if c.Thumbnail.MaxWidth <= 0 || c.Thumbnail.MaxHeight <= 0 {
		return fmt.Errorf("thumbnail bounds must be positive, got %dx%d", c.Thumbnail.MaxWidth, c.Thumbnail.MaxHeight)
	}
	if c.CallTimeout < 0 || c.ExitTimeout < 0 || c.Catalog.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// Save writes configuration as TOML with 0600 permissions to the file Path resolves,
// switching a non-TOML path to config.toml next to it.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if filepath.Ext(p) != ".toml" {
		p = filepath.Join(filepath.Dir(p), candidates[0])
	}
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
