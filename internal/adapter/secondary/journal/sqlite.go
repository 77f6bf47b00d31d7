// Package journal persists lock transitions in SQLite.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

// currentSchemaVersion is bumped together with a new migrate step.
const currentSchemaVersion = 1

// SQLiteJournal implements domain.EventJournal.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	logging.Debugf("journal ready at %s (schema version %d)", path, currentSchemaVersion)
	return j, nil
}

// DefaultPath places the journal next to the config file.
func DefaultPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "events.db")
}

func (j *SQLiteJournal) initSchema() error {
	const schemaVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`
	if _, err := j.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	if err := j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if version < 1 {
		if err := j.migrateToV1(); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

func (j *SQLiteJournal) migrateToV1() error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const events = `
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		);
	`
	if _, err := tx.Exec(events); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX idx_events_kind ON events(kind)"); err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		1, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Append stores events in one transaction.
func (j *SQLiteJournal) Append(events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	defer tx.Rollback()
	for _, e := range events {
		if e.Kind == "" {
			return errors.New("append events: event kind is empty")
		}
		if _, err := tx.Exec("INSERT INTO events (at, kind, detail) VALUES (?, ?, ?)",
			e.Time.UTC().Format(time.RFC3339Nano), string(e.Kind), e.Detail); err != nil {
			return fmt.Errorf("append %s event: %w", e.Kind, err)
		}
	}
	return tx.Commit()
}

func (j *SQLiteJournal) Recent(limit int) ([]domain.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	query := "SELECT id, at, kind, detail FROM events ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e    domain.Event
			at   string
			kind string
		)
		if err := rows.Scan(&e.ID, &at, &kind, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		if e.Time, err = time.Parse(time.RFC3339Nano, at); err != nil {
			logging.Warnf("journal event %d has bad time %q", e.ID, at)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
