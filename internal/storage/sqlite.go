package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key          TEXT PRIMARY KEY,
	value        BLOB NOT NULL,
	namespace    TEXT NOT NULL DEFAULT '',
	access_level TEXT NOT NULL DEFAULT '',
	require_auth INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL
);`

// SQLiteBackend persists envelopes in a single SQLite table.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	closed atomic.Bool
}

var (
	_ service.Backend      = (*SQLiteBackend)(nil)
	_ service.KeyLister    = (*SQLiteBackend)(nil)
	_ service.SizeReporter = (*SQLiteBackend)(nil)
)

// NewSQLiteBackend opens (or creates) the database file under cfg.Dir.
func NewSQLiteBackend(cfg Config, logger *slog.Logger) (*SQLiteBackend, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("sqlite: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.SQLite
	if sc.File == "" {
		sc.File = DefaultSQLiteConfig().File
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	path := filepath.Join(cfg.Dir, sc.File)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA busy_timeout=%d", sc.BusyTimeout),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	logger.Info("sqlite backend started", "path", path)

	return &SQLiteBackend{db: db, path: path, logger: logger}, nil
}

// Get returns the stored bytes for key.
func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return value, nil
}

// Put upserts data under key.
func (s *SQLiteBackend) Put(ctx context.Context, key string, data []byte, opts service.PutOptions) error {
	if s.closed.Load() {
		return ErrClosed
	}

	requireAuth := 0
	if opts.RequireAuthentication {
		requireAuth = 1
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO entries (key, value, namespace, access_level, require_auth, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	namespace = excluded.namespace,
	access_level = excluded.access_level,
	require_auth = excluded.require_auth,
	updated_at = excluded.updated_at`,
		key, data, opts.Namespace, string(opts.AccessLevel), requireAuth, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}

// ListKeys returns all keys with the given prefix.
func (s *SQLiteBackend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	// substr avoids LIKE, where '_' in key prefixes is a wildcard.
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite: list keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list keys: %w", err)
	}
	return keys, nil
}

// UsedBytes returns the total size of stored values.
func (s *SQLiteBackend) UsedBytes(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(length(value)), 0) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: used bytes: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("shutting down sqlite backend", "path", s.path)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}
