package eventstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a pgxpool-backed Store suitable for a shared,
// multi-process server deployment. It is safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool connection to connStr, pings the
// database, and applies the schema.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("eventstore: pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("eventstore: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("eventstore: apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresDDL = `
CREATE TABLE IF NOT EXISTS events (
    id      BIGSERIAL PRIMARY KEY,
    topic   TEXT  NOT NULL,
    payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_topic_id ON events (topic, id);
`

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, topic string, payload any) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("eventstore: marshal payload: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO events (topic, payload) VALUES ($1, $2) RETURNING id`,
		topic, body,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("eventstore: append: %w", err)
	}
	return id, nil
}

// Since implements Store.
func (s *PostgresStore) Since(ctx context.Context, topic string, fromID int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload FROM events WHERE topic = $1 AND id > $2 ORDER BY id`,
		topic, fromID,
	)
	if err != nil {
		return nil, fmt.Errorf("eventstore: since query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var body []byte
		if err := rows.Scan(&e.ID, &body); err != nil {
			return nil, fmt.Errorf("eventstore: since scan: %w", err)
		}
		e.Topic = topic
		if err := json.Unmarshal(body, &e.Payload); err != nil {
			e.Payload = nil
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
