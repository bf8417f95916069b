/*
Package cache provides the persistent result cache expensive rule
expressions read through. One SQLite file holds every category; rows are
keyed by (category, key) and the stored value is nullable, so "we cached
the absence of an answer" and "we never looked" stay distinguishable.

The connection is opened lazily on first use. Constructing a Cache is
free, and a run whose rules never touch the cache never touches the disk.
*/
package cache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/qustavo/dotsql"
	"github.com/rs/zerolog/log"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// InMemory is the path of a non-persistent cache. It always starts empty.
const InMemory = ":memory:"

// Cache is a lazily connected, mutex-serialized SQLite store. Safe for
// concurrent use; every worker of a run shares one Cache.
type Cache struct {
	mu   sync.Mutex
	path string
	db   *sqlx.DB
	dot  *dotsql.DotSql
}

// New returns an unconnected cache backed by the file at path. The file is
// created on first use if it does not exist. Use InMemory for a throwaway
// store.
func New(path string) *Cache {
	return &Cache{path: path}
}

// loadQueries parses the embedded .sql files into named queries.
func loadQueries() (*dotsql.DotSql, error) {
	var combinedSQL string
	err := fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		combinedSQL += string(content) + "\n"
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load query files: %w", err)
	}
	return dotsql.LoadFromString(combinedSQL)
}

// connect opens the database on first call. Callers must hold c.mu.
func (c *Cache) connect() error {
	if c.db != nil {
		return nil
	}

	fresh := c.path == InMemory
	if !fresh {
		if _, err := os.Stat(c.path); errors.Is(err, os.ErrNotExist) {
			fresh = true
		} else if err != nil {
			return fmt.Errorf("failed to stat cache file: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", c.path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	// A second pooled connection would see a second, empty in-memory
	// database. One is enough under the mutex either way.
	db.SetMaxOpenConns(1)

	dot, err := loadQueries()
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to parse cache queries: %w", err)
	}

	if fresh {
		for _, name := range []string{"cache-init", "cache-index"} {
			if _, err := dot.Exec(db, name); err != nil {
				db.Close()
				return fmt.Errorf("failed to initialize cache schema: %w", err)
			}
		}
		log.Debug().Str("path", c.path).Msg("initialized cache schema")
	}

	c.db = db
	c.dot = dot
	return nil
}

// Read looks up the entry for (category, key). The outer found flag is the
// existence of the entry; a found entry may still carry a nil value.
func (c *Cache) Read(category, key string) (*string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, false, err
	}

	query, err := c.dot.Raw("cache-read")
	if err != nil {
		return nil, false, err
	}
	var value sql.NullString
	err = c.db.Get(&value, query, category, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if !value.Valid {
		return nil, true, nil
	}
	return &value.String, true, nil
}

// Write stores value for (category, key), replacing any previous entry.
// A nil value records that the computation produced no answer.
func (c *Cache) Write(category, key string, value *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}

	if _, err := c.dot.Exec(c.db, "cache-delete", category, key); err != nil {
		return fmt.Errorf("failed to clear cache entry: %w", err)
	}
	var stored any
	if value != nil {
		stored = *value
	}
	if _, err := c.dot.Exec(c.db, "cache-write", category, key, stored); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying connection if one was ever opened.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.dot = nil
	return err
}
