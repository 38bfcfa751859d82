// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package commands

import (
	"context"
	"strings"

	"assistbridge/cli/internal/catalog"
	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/models"
	"assistbridge/cli/internal/thumbnail"
)

// Local serves the operations that never touch the backend session.
type Local struct {
	ModelsDir string
	Catalog   catalog.Fetcher

	ThumbMaxWidth  int
	ThumbMaxHeight int
}

// MissingModels reports which of names are absent from dir, or from the configured
// models directory when dir is empty.
func (l *Local) MissingModels(dir string, names []string) (models.Result, error) {
	if dir == "" {
		dir = l.ModelsDir
	}
	if dir == "" {
		return models.Result{}, errors.New(errors.InvalidInput, "models directory is not configured")
	}
	return models.Missing(dir, names)
}

// Thumbnail returns the Base64 PNG thumbnail of the image at path.
func (l *Local) Thumbnail(path string) (string, error) {
	w, h := l.ThumbMaxWidth, l.ThumbMaxHeight
	if w <= 0 {
		w = thumbnail.DefaultMaxWidth
	}
	if h <= 0 {
		h = thumbnail.DefaultMaxHeight
	}
	return thumbnail.Encode(path, w, h)
}

func (l *Local) fetcher() (catalog.Fetcher, error) {
	if l.Catalog == nil {
		return nil, errors.New(errors.InvalidInput, "catalog is not configured")
	}
	return l.Catalog, nil
}

// FetchCatalog returns one raw page of the MCP catalog.
func (l *Local) FetchCatalog(ctx context.Context, q catalog.Query) (string, error) {
	c, err := l.fetcher()
	if err != nil {
		return "", err
	}
	return c.Query(ctx, q)
}

// FetchCatalogByID returns the raw catalog entry for id.
func (l *Local) FetchCatalogByID(ctx context.Context, id string) (string, error) {
	c, err := l.fetcher()
	if err != nil {
		return "", err
	}
	return c.QueryByID(ctx, id)
}

// InstallResult lists the servers registered by an install.
type InstallResult struct {
	ID      string   `json:"id"`
	Servers []string `json:"servers"`
}

// InstallCatalogServer fetches catalog item id and registers each of its server
// configurations with the backend. The catalog is read before any session call.
// Servers added before a failure stay registered; the returned error names them
// and keeps the kind of the failed call.
func (b *Bridge) InstallCatalogServer(ctx context.Context, l *Local, id string) (InstallResult, error) {
	res := InstallResult{ID: id, Servers: []string{}}
	raw, err := l.FetchCatalogByID(ctx, id)
	if err != nil {
		return res, err
	}
	servers, err := catalog.ParseServers(id, raw)
	if err != nil {
		return res, err
	}
	if len(servers) == 0 {
		return res, errors.New(errors.Protocol, "catalog item "+id+" has no server configuration")
	}
	for _, s := range servers {
		if _, err := b.AddMCPServer(ctx, s); err != nil {
			if len(res.Servers) > 0 {
				msg := "add " + s.ServerName + " failed after installing " + strings.Join(res.Servers, ", ")
				return res, errors.Wrap(errors.KindOf(err), msg, err)
			}
			return res, err
		}
		res.Servers = append(res.Servers, s.ServerName)
	}
	b.log.Info().Str("id", id).Strs("servers", res.Servers).Msg("catalog servers installed")
	return res, nil
}
