// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"assistbridge/cli/internal/errors"
)

// CacheVersion is stored with every row; rows written by another format version are ignored.
const CacheVersion = "1.0"

// DefaultCacheTTL is how long a cached catalog answer stays fresh.
const DefaultCacheTTL = 24 * time.Hour

type cacheRow struct {
	CacheKey  string `gorm:"primaryKey;size:512"`
	Version   string `gorm:"size:16;not null"`
	Body      string `gorm:"type:text;not null"`
	FetchedAt int64  `gorm:"index;not null"`
}

func (cacheRow) TableName() string { return "catalog_cache" }

// Cache stores raw catalog responses in SQLite.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(errors.IO, "create cache dir", err)
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrap(errors.IO, "open catalog cache", err)
	}
	if err := gdb.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, errors.Wrap(errors.IO, "configure catalog cache", err)
	}
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, errors.Wrap(errors.IO, "configure catalog cache", err)
	}
	if err := gdb.AutoMigrate(&cacheRow{}); err != nil {
		return nil, errors.Wrap(errors.IO, "migrate catalog cache", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(errors.IO, "open catalog cache", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Cache{db: gdb, ttl: ttl, now: time.Now}, nil
}

// Get returns a fresh body stored under key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var row cacheRow
	err := c.db.WithContext(ctx).Where("cache_key = ? AND version = ?", key, CacheVersion).Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(errors.IO, "read catalog cache", err)
	}
	if c.now().Sub(time.Unix(row.FetchedAt, 0)) > c.ttl {
		return "", false, nil
	}
	return row.Body, true, nil
}

// Put stores body under key, replacing any previous value.
func (c *Cache) Put(ctx context.Context, key, body string) error {
	row := cacheRow{CacheKey: key, Version: CacheVersion, Body: body, FetchedAt: c.now().Unix()}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(errors.IO, "write catalog cache", err)
	}
	return nil
}

// Purge drops expired rows and rows from other format versions.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	res := c.db.WithContext(ctx).Where("fetched_at < ? OR version <> ?", cutoff, CacheVersion).Delete(&cacheRow{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.IO, "purge catalog cache", res.Error)
	}
	return res.RowsAffected, nil
}

// Clear removes every row.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.db.WithContext(ctx).Where("1 = 1").Delete(&cacheRow{}).Error; err != nil {
		return errors.Wrap(errors.IO, "clear catalog cache", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// QueryKey is the cache key for a list query.
func QueryKey(q Query) string {
	b, _ := json.Marshal(newRequest(q))
	return "list:" + string(b)
}

// IDKey is the cache key for a by-id lookup.
func IDKey(id string) string { return "id:" + id }
