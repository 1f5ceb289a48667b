// Package store implements the embedded transactional storage engine: a
// SQLite-backed schema, typed domain services, and the vector table used by
// semantic search.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Store is the concrete SQLite-backed implementation of the storage engine
// described in the specification's Storage Engine component. All domain
// service methods hang off this type.
type Store struct {
	db   *sql.DB
	path string

	// vecMu serializes vector table dimension recreation against
	// concurrent embedding-pipeline writes.
	vecMu sync.Mutex
}

// Open creates dataDir if missing, opens (or creates) the database at
// dataDir/savecontext.db, runs pending migrations, and returns a handle.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "savecontext.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := &Store{db: db, path: path}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check schema version: %w", err)
	}

	// No migrations beyond the baseline schema exist yet; future releases
	// add //go:embed'd migrations/NNN_*.sql files and a version gate here,
	// following the same shape.
	_ = version
	if version < currentSchemaVersion {
		if _, err := s.db.Exec("UPDATE schema_version SET version = ?", currentSchemaVersion); err != nil {
			return fmt.Errorf("bump schema version: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the on-disk database file path, used by the backup routine
// before destructive provider/dimension switches.
func (s *Store) Path() string { return s.path }

// WithTx runs fn inside a single transaction. Multi-row invariants
// (short_id allocation, dependency cycle checks, cascading unblocks) must
// run inside one call to WithTx so they observe a consistent snapshot.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return Internal(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return Internal(err, "commit transaction")
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
