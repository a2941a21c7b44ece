package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a journal written by an older clubsync to version.
type migration struct {
	version int
	stmt    string
}

// migrations are applied in order to journals whose user_version is below
// the step's version. Steps are append-only; a shipped step never changes.
var migrations = []migration{
	// failure reports (journal --failed)
	{1, `CREATE INDEX IF NOT EXISTS idx_outcomes_failed ON outcomes(run_id, success, seq)`},
	// cross-run lookups of one request body (journal --fingerprint)
	{2, `CREATE INDEX IF NOT EXISTS idx_outcomes_fingerprint ON outcomes(fingerprint)`},
	// newest-first run listing
	{3, `CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`},
}

// currentSchemaVersion is the user_version of a fully migrated journal.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the run journal. It implements engine.Journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating and migrating it as needed.
// Use ":memory:" for a throwaway journal.
//
// The journal runs in WAL mode so `clubsync journal` can read while a sync
// is writing, and enforces foreign keys so deleting a run removes its
// records and outcomes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	// one connection: an in-memory journal lives and dies with it, and a
	// run is written in a single transaction anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("journal setup %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate journal to v%d: %w", m.version, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("migrate journal to v%d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// verifyPragma reports whether a pragma holds the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
