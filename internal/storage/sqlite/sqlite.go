// Package sqlite is a Storage adapter backed by a SQLite file.
//
// Values are stored as canonical JSON (see package codec), so Load returns
// the generic decoding: map[string]any, []any, int64, float64, string, bool
// or nil.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// Name is the catalog name of this adapter.
const Name = "sqlite"

// PathOption is the factory option naming the database file.
const PathOption = "path"

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on kv.expires_at for Purge
const currentSchemaVersion = 1

// Store is a SQLite-backed Storage.
// Uses WAL mode so readers can load while a save is in flight.
type Store struct {
	db       *sql.DB
	settings storage.Settings
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Safe to call repeatedly on the same path.
func Open(path string, opts ...storage.Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, settings: storage.NewSettings(opts...)}, nil
}

// Factory builds a Store from config options (path, default_ttl).
// path defaults to "measure.db" in the working directory.
func Factory(o measure.Options) (measure.Storage, error) {
	path, err := o.String(PathOption, "measure.db")
	if err != nil {
		return nil, err
	}
	opts, err := storage.OptionsFrom(o)
	if err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores value under key.
func (s *Store) Save(key string, value any, ttl ...persist.TTL) error {
	return s.SaveContext(context.Background(), key, value, ttl...)
}

// SaveContext is Save with a caller-supplied context.
func (s *Store) SaveContext(ctx context.Context, key string, value any, ttl ...persist.TTL) error {
	expiresAt, err := s.settings.Expiry(ttl...)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	var expires sql.NullInt64
	if !expiresAt.IsZero() {
		expires = sql.NullInt64{Int64: expiresAt.UnixMilli(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, saved_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			saved_at = excluded.saved_at,
			expires_at = excluded.expires_at
	`, key, string(data), s.settings.Now().UnixMilli(), expires)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(key string) (any, error) {
	return s.LoadContext(context.Background(), key)
}

// LoadContext is Load with a caller-supplied context.
// Expired rows read as missing and are deleted.
func (s *Store) LoadContext(ctx context.Context, key string) (any, error) {
	var (
		data    string
		expires sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key,
	).Scan(&data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}

	if expires.Valid && storage.Expired(time.UnixMilli(expires.Int64), s.settings.Now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return nil, fmt.Errorf("delete expired %q: %w", key, err)
		}
		return nil, storage.NotFound(key)
	}

	v, err := codec.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return v, nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.settings.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

// Keys returns every unexpired key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv
		WHERE expires_at IS NULL OR expires_at > ?
		ORDER BY key COLLATE BINARY ASC
	`, s.settings.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the table if it doesn't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
