package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps records in a single embedded SQLite table keyed by (dir, key).
// It uses modernc.org/sqlite for CGO-less builds.
type SQLiteBackend struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteBackend creates a backend pointing to dbPath. Call Init() before using it.
func NewSQLiteBackend(dbPath string) *SQLiteBackend {
	return &SQLiteBackend{dbPath: dbPath}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *SQLiteBackend) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	pragmas := []struct{ stmt, desc string }{
		{`PRAGMA journal_mode=WAL;`, "set WAL"},
		{`PRAGMA busy_timeout=5000;`, "set busy_timeout"},
		{`PRAGMA synchronous=NORMAL;`, "set synchronous"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("%s: %w", p.desc, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *SQLiteBackend) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	const createRecords = `
CREATE TABLE IF NOT EXISTS records (
  dir        TEXT NOT NULL,
  key        TEXT NOT NULL,
  value      BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  PRIMARY KEY (dir, key)
);`
	if _, err := db.Exec(createRecords); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) ready() error {
	if s.db == nil {
		return fmt.Errorf("sqlite backend not initialized")
	}
	return nil
}

func (s *SQLiteBackend) Get(ctx context.Context, dir, key string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := validateLocation(dir, key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE dir=? AND key=?`, dir, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	return value, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, dir, key string, value []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := validateLocation(dir, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO records (dir, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(dir, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		dir, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, dir, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := validateLocation(dir, key); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE dir=? AND key=?`, dir, key)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteBackend) Has(ctx context.Context, dir, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if err := validateLocation(dir, key); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE dir=? AND key=?`, dir, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select record: %w", err)
	}
	return true, nil
}

// Count returns the number of records stored under dir.
func (s *SQLiteBackend) Count(ctx context.Context, dir string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE dir=?`, dir).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
