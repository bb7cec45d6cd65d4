package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - kv table
const currentSchemaVersion = 1

// SQLitePersister keeps persisted state in a SQLite database.
// Uses WAL mode so a second process can read while one writes.
type SQLitePersister struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLitePersister, error) {
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

	return &SQLitePersister{db: db, now: time.Now}, nil
}

// Load returns the value stored under key.
func (p *SQLitePersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	return value, true, nil
}

// Save upserts value under key and bumps its revision.
func (p *SQLitePersister) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = kv.revision + 1,
			updated_at = excluded.updated_at
	`, key, value, p.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (p *SQLitePersister) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// revision reports how many times key has been saved. Used for testing.
func (p *SQLitePersister) revision(key string) (int, error) {
	var rev int
	err := p.db.QueryRow(`SELECT revision FROM kv WHERE key = ?`, key).Scan(&rev)
	return rev, err
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

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
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
// A database written by a newer build is refused rather than downgraded.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (p *SQLitePersister) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := p.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
