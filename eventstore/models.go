// Package eventstore provides durable append-only storage for published
// topic events, so a streaming subscriber that asks for includeHistory or a
// startFrom cursor can be served events that were published before it
// connected. Two backends are provided: SQLiteStore for a single-process
// deployment and PostgresStore for a shared server deployment, mirroring
// the dashboard's own SQLite-queue/Postgres-store split.
package eventstore

import "context"

// Event is one durably stored topic event. ID is monotonically increasing
// per topic and is the cursor used by Since and by a subscriber's
// startFrom.
type Event struct {
	ID      int64
	Topic   string
	Payload any
}

// Store durably appends topic events and replays them by cursor. All
// methods are safe for concurrent use.
type Store interface {
	// Append persists payload under topic and returns its assigned ID.
	Append(ctx context.Context, topic string, payload any) (int64, error)

	// Since returns events on topic with ID > fromID, oldest first. A
	// fromID of 0 returns the full retained history for topic.
	Since(ctx context.Context, topic string, fromID int64) ([]Event, error)

	// Close releases the store's underlying connection(s).
	Close() error
}
