// Package journal records engine events (signals, entries, fills,
// closes) for post-run inspection. Journaling failures never interrupt
// the trading cycle.
package journal

import (
	"context"
	"time"
)

// Event represents a journaled event.
type Event struct {
	Time        time.Time
	Account     string // "24/7" or "Scheduled"
	Type        string // e.g., "signal", "entry", "order", "trade"
	Description string
	Data        map[string]any
}

// Journaler interface for journaling events.
type Journaler interface {
	LogEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error)
}

// Nop discards all events.
type Nop struct{}

func (Nop) LogEvent(_ context.Context, _ Event) error { return nil }

func (Nop) GetEvents(_ context.Context, _ string, _, _ time.Time) ([]Event, error) {
	return nil, nil
}
