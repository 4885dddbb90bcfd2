package journal

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process journal. It is the default when no database
// DSN is configured.
type Memory struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{events: make([]Event, 0, 1024)}
}

func (m *Memory) LogEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) GetEvents(_ context.Context, eventType string, start, end time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.Type != eventType {
			continue
		}
		if e.Time.Before(start) || e.Time.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
