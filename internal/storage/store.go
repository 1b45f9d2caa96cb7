package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Journal is an append-only activity log backed by SQLite. It records
// presence and notification events for offline inspection; it is never read
// back to rebuild in-memory state.
type Journal struct {
	db *sql.DB
}

// ActivityEntry is one journaled event. At is Unix milliseconds.
type ActivityEntry struct {
	ID       int64  `json:"id"`
	Event    string `json:"event"`
	Username string `json:"username"`
	At       int64  `json:"at"`
}

// Open initializes the SQLite database at the provided path. Call Close when
// done.
func Open(path string) (*Journal, error) {
	if path == "" {
		path = "whoson.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying DB connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (j *Journal) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event TEXT NOT NULL,
			username TEXT NOT NULL,
			at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_at ON activity(at);`,
	}
	for _, stmt := range statements {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Record appends one event. Callers treat failures as non-fatal.
func (j *Journal) Record(ctx context.Context, event, username string, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO activity (event, username, at) VALUES (?, ?, ?)`,
		event, username, at.UnixMilli())
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, event, username, at FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]ActivityEntry, 0, limit)
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.Event, &e.Username, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
