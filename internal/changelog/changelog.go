// Package changelog keeps the bounded, newest-first history of change events for a session.
package changelog

import (
	"sync"

	"github.com/Houeta/stockwatch/internal/models"
)

// DefaultCapacity is the number of events kept before the oldest are evicted.
const DefaultCapacity = 50

// Log is a bounded newest-first list of change events. It is safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.ChangeEvent
}

// New creates a Log holding at most capacity events; capacity <= 0 means DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Log{capacity: capacity, entries: make([]models.ChangeEvent, 0, capacity)}
}

// Append inserts the events at the front one by one, so the last argument ends up newest.
func (l *Log) Append(events ...models.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]models.ChangeEvent, 0, min(len(events)+len(l.entries), l.capacity))
	for i := len(events) - 1; i >= 0 && len(merged) < l.capacity; i-- {
		merged = append(merged, events[i])
	}
	for _, e := range l.entries {
		if len(merged) == l.capacity {
			break
		}
		merged = append(merged, e)
	}
	l.entries = merged
}

// Clear drops every event.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = l.entries[:0]
}

// Entries returns a copy of the events, newest first.
func (l *Log) Entries() []models.ChangeEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.ChangeEvent, len(l.entries))
	copy(out, l.entries)

	return out
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Capacity returns the maximum number of stored events.
func (l *Log) Capacity() int {
	return l.capacity
}
