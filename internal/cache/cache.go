// Package cache stores fetched platform data in sqlite with per-entry expiry.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

// FetchFunc fetches data from an external source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// CacheDB manages the sqlite connection.
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	now  func() time.Time
}

var (
	globalCache     *CacheDB
	globalCacheOnce sync.Once
)

// ResetGlobalCache closes the global cache so the next GetGlobalCache call
// opens a new one.
func ResetGlobalCache() error {
	if globalCache != nil {
		if err := globalCache.Close(); err != nil {
			return err
		}
	}
	globalCache = nil
	globalCacheOnce = sync.Once{}
	return nil
}

// GetGlobalCache opens the database named by cache.dbfile once and creates
// all cache tables.
func GetGlobalCache() (*CacheDB, error) {
	var initErr error
	globalCacheOnce.Do(func() {
		dbPath := viper.GetString("cache.dbfile")
		if dbPath == "" {
			dbPath = "./cache.db"
		}
		globalCache, initErr = Open(dbPath)
	})
	if initErr != nil {
		globalCacheOnce = sync.Once{}
		return nil, initErr
	}
	return globalCache, nil
}

// Open opens dbPath and creates all cache tables.
func Open(dbPath string) (*CacheDB, error) {
	c, err := NewCacheDB(dbPath)
	if err != nil {
		return nil, err
	}
	for _, schema := range AllCacheSchemas {
		if err := c.CreateTable(schema); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), c.Close())
		}
	}
	return c, nil
}

// NewCacheDB opens the database connection without creating tables.
func NewCacheDB(dbPath string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	return &CacheDB{db: db, path: dbPath, now: time.Now}, nil
}

// CreateTable runs a schema statement.
func (c *CacheDB) CreateTable(schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database file.
func (c *CacheDB) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InvalidateSource deletes all entries of a cache table and returns how many
// rows were removed.
func (c *CacheDB) InvalidateSource(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	slog.Debug("Cache table cleared", "table", tableName, "rows_deleted", rows)
	return rows, nil
}

func validateTableName(tableName string) error {
	if !ValidCacheTableNames[tableName] {
		return fmt.Errorf("invalid cache table name: %s", tableName)
	}
	return nil
}

// Get returns the live payload stored under key.
func (c *CacheDB) Get(tableName, key string) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var data string
	var expiresAt int64
	err := c.db.QueryRow(
		fmt.Sprintf("SELECT data, expires_at FROM %s WHERE cache_key = ?", tableName), key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if c.now().Unix() >= expiresAt {
		slog.Debug("Cache expired", "table", tableName, "key", key)
		return "", false, nil
	}
	return data, true, nil
}

// Set stores data under key for ttl.
func (c *CacheDB) Set(tableName, key, data string, ttl time.Duration) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl).Unix()
	_, err := c.db.Exec(
		fmt.Sprintf("INSERT OR REPLACE INTO %s (cache_key, data, cached_at, expires_at) VALUES (?, ?, CURRENT_TIMESTAMP, ?)", tableName),
		key, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// ClearExpired removes expired entries from a table and returns how many
// were removed.
func (c *CacheDB) ClearExpired(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at <= ?", tableName), c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "table", tableName, "count", rows)
	}
	return rows, nil
}

// Exists reports whether a live entry exists for key.
func (c *CacheDB) Exists(tableName, key string) bool {
	_, ok, err := c.Get(tableName, key)
	return err == nil && ok
}

// GetOrFetchWithTTL returns the cached value for key or calls fetch and
// stores its result for ttl(result). A ttl of 0 or less leaves the result
// uncached; fetch errors are never cached. A nil c fetches directly.
func GetOrFetchWithTTL[T any](ctx context.Context, c *CacheDB, tableName, key string, fetch FetchFunc[T], ttl func(T) time.Duration) (T, bool, error) {
	var zero T

	if c == nil {
		data, err := fetch(ctx)
		return data, false, err
	}

	cached, ok, err := c.Get(tableName, key)
	if err != nil {
		slog.Warn("Cache lookup failed, fetching directly", "table", tableName, "key", key, "error", err)
	}
	if ok {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", tableName, "key", key)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "table", tableName, "key", key, "error", err)
	}

	slog.Debug("Cache miss, fetching data", "table", tableName, "key", key)
	data, err := fetch(ctx)
	if err != nil {
		return zero, false, err
	}

	d := ttl(data)
	if d <= 0 {
		slog.Debug("Skipping cache store per policy", "table", tableName, "key", key)
		return data, false, nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "table", tableName, "key", key, "error", err)
		return data, false, nil
	}
	if err := c.Set(tableName, key, string(payload), d); err != nil {
		slog.Warn("Failed to cache data", "table", tableName, "key", key, "error", err)
	}
	return data, false, nil
}

// FixedTTL caches every result for d.
func FixedTTL[T any](d time.Duration) func(T) time.Duration {
	return func(T) time.Duration { return d }
}

// TTLUnless caches results for d unless skip reports true for them.
func TTLUnless[T any](d time.Duration, skip func(T) bool) func(T) time.Duration {
	return func(v T) time.Duration {
		if skip(v) {
			return 0
		}
		return d
	}
}
