package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryWriter keeps events in process memory. It serves tests and
// single-process deployments without an audit database.
type MemoryWriter struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (m *MemoryWriter) Store(_ context.Context, event Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

func (m *MemoryWriter) StoreBatch(_ context.Context, events []Event) error {
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of every stored event in arrival order.
func (m *MemoryWriter) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

// ByResource returns the events recorded for one resource.
func (m *MemoryWriter) ByResource(resource, id string) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.Resource == resource && e.ResourceID == id {
			out = append(out, e)
		}
	}
	return out
}
