package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqlInit = `
CREATE TABLE IF NOT EXISTS resolution (
	key TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS resolution_updated_at_idx ON resolution(updated_at);
`

const sqlUpsert = `
INSERT INTO resolution (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at;
`

const sqlSelect = `
SELECT value, expires_at FROM resolution WHERE key = ?;
`

const sqlTrim = `
DELETE FROM resolution WHERE key NOT IN (
	SELECT key FROM resolution ORDER BY updated_at DESC LIMIT ?
);
`

// SQLite is a file-backed cache that keeps at most maxRows entries
type SQLite struct {
	db         *sql.DB
	upsertStmt *sql.Stmt
	selectStmt *sql.Stmt
	maxRows    int
	now        func() time.Time
}

// NewSQLite opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func NewSQLite(ctx context.Context, path string, maxRows int) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlInit); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	upsertStmt, err := db.PrepareContext(ctx, sqlUpsert)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	selectStmt, err := db.PrepareContext(ctx, sqlSelect)
	if err != nil {
		upsertStmt.Close()
		db.Close()
		return nil, fmt.Errorf("prepare select: %w", err)
	}

	return &SQLite{
		db:         db,
		upsertStmt: upsertStmt,
		selectStmt: selectStmt,
		maxRows:    maxRows,
		now:        time.Now,
	}, nil
}

func (c *SQLite) Get(ctx context.Context, key string) (string, bool) {
	var value string
	var expiresAt int64
	err := c.selectStmt.QueryRowContext(ctx, key).Scan(&value, &expiresAt)
	if err != nil {
		return "", false
	}
	if expiresAt > 0 && c.now().UnixNano() >= expiresAt {
		c.db.ExecContext(ctx, `DELETE FROM resolution WHERE key = ?`, key)
		return "", false
	}
	return value, true
}

func (c *SQLite) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	now := c.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	if _, err := c.upsertStmt.ExecContext(ctx, key, value, expiresAt, now.UnixNano()); err != nil {
		return fmt.Errorf("sqlite upsert: %w", err)
	}
	if c.maxRows > 0 {
		if _, err := c.db.ExecContext(ctx, sqlTrim, c.maxRows); err != nil {
			return fmt.Errorf("sqlite trim: %w", err)
		}
	}
	return nil
}

func (c *SQLite) Purge(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM resolution`)
	return err
}

// Len returns the number of stored rows, expired ones included
func (c *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolution`).Scan(&n)
	return n, err
}

func (c *SQLite) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *SQLite) Close() error {
	return errors.Join(c.upsertStmt.Close(), c.selectStmt.Close(), c.db.Close())
}
