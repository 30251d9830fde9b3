// Package eventstore: SQLite backend.
//
// # WAL mode
//
// The database is opened with PRAGMA journal_mode = WAL so that a
// subscriber replaying history via Since can proceed concurrently with
// Append calls from the publishing side.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // register "sqlite" driver with database/sql
)

// SQLiteStore is a WAL-mode SQLite-backed Store. It is safe for concurrent
// use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, enables
// WAL journal mode, and applies the schema. path may be ":memory:" for
// tests, though an in-memory database loses all history on Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open %q: %w", path, err)
	}

	// SQLite allows only one writer at a time; a single pooled connection
	// serializes Append calls rather than surfacing "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: set synchronous = NORMAL: %w", err)
	}
	if _, err := db.Exec(sqliteDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS events (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    topic   TEXT    NOT NULL,
    payload TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_topic_id ON events (topic, id);
`

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, topic string, payload any) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("eventstore: marshal payload: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO events (topic, payload) VALUES (?, ?)`, topic, string(body))
	if err != nil {
		return 0, fmt.Errorf("eventstore: append: %w", err)
	}
	return result.LastInsertId()
}

// Since implements Store.
func (s *SQLiteStore) Since(ctx context.Context, topic string, fromID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM events WHERE topic = ? AND id > ? ORDER BY id`, topic, fromID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: since query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var body string
		if err := rows.Scan(&e.ID, &body); err != nil {
			return nil, fmt.Errorf("eventstore: since scan: %w", err)
		}
		e.Topic = topic
		if err := json.Unmarshal([]byte(body), &e.Payload); err != nil {
			e.Payload = nil
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
