// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// Fetcher is the network side of the catalog, implemented by *Client.
type Fetcher interface {
	Query(ctx context.Context, q Query) (string, error)
	QueryByID(ctx context.Context, id string) (string, error)
}

var (
	_ Fetcher = (*Client)(nil)
	_ Fetcher = (*CachedClient)(nil)
)

// CachedClient serves fresh cache hits and falls back to the network on a miss.
// A nil Cache makes it a plain pass-through. Cache failures are logged, never returned.
type CachedClient struct {
	Fetcher Fetcher
	Cache   *Cache
	Log     zerolog.Logger
}

func (c *CachedClient) Query(ctx context.Context, q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	return c.load(ctx, QueryKey(q), false, func(ctx context.Context) (string, error) {
		return c.Fetcher.Query(ctx, q)
	})
}

func (c *CachedClient) QueryByID(ctx context.Context, id string) (string, error) {
	if _, err := ServerPath(id); err != nil {
		return "", err
	}
	return c.load(ctx, IDKey(id), false, func(ctx context.Context) (string, error) {
		return c.Fetcher.QueryByID(ctx, id)
	})
}

// Refresh refetches q from the network and overwrites the cached answer.
func (c *CachedClient) Refresh(ctx context.Context, q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	return c.load(ctx, QueryKey(q), true, func(ctx context.Context) (string, error) {
		return c.Fetcher.Query(ctx, q)
	})
}

func (c *CachedClient) load(ctx context.Context, key string, force bool, fetch func(context.Context) (string, error)) (string, error) {
	if c.Cache != nil && !force {
		body, ok, err := c.Cache.Get(ctx, key)
		if err != nil {
			c.Log.Warn().Err(err).Msg("catalog cache read failed")
		} else if ok {
			c.Log.Debug().Str("key", key).Msg("catalog cache hit")
			return body, nil
		}
	}

	body, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(ctx, key, body); err != nil {
			c.Log.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return body, nil
}
