// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbridge/cli/internal/errors"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "catalog.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutGetAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "list:a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "list:a", `{"v":1}`))
	require.NoError(t, c.Put(ctx, "list:a", `{"v":2}`))

	body, ok, err := c.Get(ctx, "list:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, body)

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok, err = c.Get(ctx, "list:a")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCacheIgnoresOtherVersions(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)
	require.NoError(t, c.db.Create(&cacheRow{CacheKey: "id:x", Version: "0.9", Body: "{}", FetchedAt: time.Now().Unix()}).Error)

	_, ok, err := c.Get(ctx, "id:x")
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingFetcher struct {
	queries, byID int
	body          string
	err           error
}

func (f *countingFetcher) Query(context.Context, Query) (string, error) {
	f.queries++
	return f.body, f.err
}

func (f *countingFetcher) QueryByID(context.Context, string) (string, error) {
	f.byID++
	return f.body, f.err
}

func TestCachedClientServesHits(t *testing.T) {
	ctx := context.Background()
	f := &countingFetcher{body: `{"data":{}}`}
	cc := &CachedClient{Fetcher: f, Cache: openTestCache(t)}
	q := Query{PageNumber: 1, PageSize: 10}

	for i := 0; i < 3; i++ {
		body, err := cc.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, `{"data":{}}`, body)
	}
	assert.Equal(t, 1, f.queries)

	_, err := cc.Refresh(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, f.queries)

	_, err = cc.QueryByID(ctx, "@org/a")
	require.NoError(t, err)
	_, err = cc.QueryByID(ctx, "@org/a")
	require.NoError(t, err)
	assert.Equal(t, 1, f.byID)
}

func TestCachedClientDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	f := &countingFetcher{err: errors.HTTP(503, "catalog request failed")}
	cc := &CachedClient{Fetcher: f, Cache: openTestCache(t)}
	q := Query{PageNumber: 1, PageSize: 10}

	_, err := cc.Query(ctx, q)
	assert.Equal(t, 503, errors.StatusOf(err))

	f.err, f.body = nil, `{}`
	body, err := cc.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, `{}`, body)
	assert.Equal(t, 2, f.queries)
}

func TestCachedClientWithoutCache(t *testing.T) {
	f := &countingFetcher{body: "x"}
	cc := &CachedClient{Fetcher: f}
	_, err := cc.QueryByID(context.Background(), "a")
	require.NoError(t, err)
	_, err = cc.QueryByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, f.byID)

	_, err = cc.QueryByID(context.Background(), "../a")
	assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
}
