// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"assistbridge/cli/internal/bridge/grpcclient"
	"assistbridge/cli/internal/catalog"
	"assistbridge/cli/internal/commands"
	"assistbridge/cli/internal/config"
	"assistbridge/cli/internal/keychain"
	"assistbridge/cli/internal/logging"
	"assistbridge/cli/internal/session"
	"assistbridge/cli/internal/xdg"
)

// app is the wiring shared by every command that needs more than the config.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	sessions *session.Manager
	bridge   *commands.Bridge
	local    *commands.Local
	registry *commands.Registry
	cached   *catalog.CachedClient
	cache    *catalog.Cache
}

// loadConfig reads the config and applies the logging flags.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logJSON {
		cfg.LogJSON = true
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogJSON), nil
}

func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sessions := session.New(
		grpcclient.Dialer{DialTimeout: grpcclient.DefaultDialTimeout},
		cfg.BackendAddr,
		session.WithCallTimeout(cfg.CallTimeout.Std()),
		session.WithLogger(log.With().Str("component", "session").Logger()),
	)

	client := catalog.New(cfg.Catalog.BaseURL, cfg.Catalog.UserAgent, cfg.Catalog.Timeout.Std(),
		catalog.WithTokenSource(keychain.TokenSource{}),
		catalog.WithLogger(log.With().Str("component", "catalog").Logger()),
	)
	a := &app{cfg: cfg, log: log, sessions: sessions}
	a.cached = &catalog.CachedClient{Fetcher: client, Log: log}

	// The cache is an optimisation; without it the catalog is queried directly.
	if path, err := cachePath(cfg); err != nil {
		log.Warn().Err(err).Msg("catalog cache disabled")
	} else if cache, err := catalog.OpenCache(path, cfg.Catalog.CacheTTL.Std()); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("catalog cache disabled")
	} else {
		a.cache = cache
		a.cached.Cache = cache
	}

	a.bridge = commands.NewBridge(sessions, Version, log.With().Str("component", "bridge").Logger())
	a.local = &commands.Local{
		ModelsDir:      cfg.ModelsDir,
		Catalog:        a.cached,
		ThumbMaxWidth:  cfg.Thumbnail.MaxWidth,
		ThumbMaxHeight: cfg.Thumbnail.MaxHeight,
	}
	a.registry = commands.NewRegistry(a.bridge, a.local, log.With().Str("component", "commands").Logger())
	return a, nil
}

func cachePath(cfg config.Config) (string, error) {
	if cfg.Catalog.CachePath != "" {
		return cfg.Catalog.CachePath, nil
	}
	dir, err := xdg.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// connect opens and registers a session for one-shot commands.
func (a *app) connect(ctx context.Context) error {
	_, err := a.bridge.Connect(ctx)
	return err
}

// close tears down whatever the command opened.
func (a *app) close(ctx context.Context) {
	if err := a.bridge.Disconnect(ctx); err != nil {
		a.log.Debug().Err(err).Msg("disconnect on exit")
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}
