package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	time TIMESTAMPTZ NOT NULL,
	account TEXT NOT NULL,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	data JSONB
);
CREATE INDEX IF NOT EXISTS idx_events_type_time ON events (type, time);
`

// Postgres journals events into a Postgres table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the connection, applies the schema and returns the
// journal.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) LogEvent(ctx context.Context, e Event) error {
	data, _ := json.Marshal(e.Data)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO events (time, account, type, description, data) VALUES ($1,$2,$3,$4,$5)`,
		e.Time, e.Account, e.Type, e.Description, data)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

func (p *Postgres) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT time, account, type, description, data FROM events WHERE type=$1 AND time >= $2 AND time <= $3 ORDER BY time ASC`,
		eventType, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.Time, &e.Account, &e.Type, &e.Description, &data); err != nil {
			return nil, err
		}
		json.Unmarshal(data, &e.Data)
		e.Time = e.Time.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
