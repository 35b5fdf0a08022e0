// Package notifier defines how front ends receive cycle results and change events.
package notifier

import (
	"context"
	"sync"

	"github.com/Houeta/stockwatch/internal/models"
)

// Collaborator is implemented by every front end (console, Telegram, web socket).
type Collaborator interface {
	// OnCycleComplete is called after every completed cycle, scheduled or manual.
	OnCycleComplete(ctx context.Context, snap models.Snapshot, events []models.ChangeEvent, stats models.Stats)
	// OnCycleError is called when a cycle could not fetch the catalog or persist the snapshot.
	OnCycleError(ctx context.Context, err error)
	// Notify is called once per alert-worthy event (back in stock, by default).
	Notify(ctx context.Context, event models.ChangeEvent)
}

// Multi fans every call out to its collaborators in registration order.
// Collaborators can be added after the engine was created.
type Multi struct {
	mu    sync.RWMutex
	items []Collaborator
}

// NewMulti creates a fan-out over collaborators.
func NewMulti(collaborators ...Collaborator) *Multi {
	return &Multi{items: collaborators}
}

// Add registers another collaborator.
func (m *Multi) Add(c Collaborator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, c)
}

func (m *Multi) each(fn func(Collaborator)) {
	m.mu.RLock()
	items := append([]Collaborator(nil), m.items...)
	m.mu.RUnlock()

	for _, c := range items {
		fn(c)
	}
}

// OnCycleComplete implements Collaborator.
func (m *Multi) OnCycleComplete(ctx context.Context, snap models.Snapshot, events []models.ChangeEvent, stats models.Stats) {
	m.each(func(c Collaborator) { c.OnCycleComplete(ctx, snap, events, stats) })
}

// OnCycleError implements Collaborator.
func (m *Multi) OnCycleError(ctx context.Context, err error) {
	m.each(func(c Collaborator) { c.OnCycleError(ctx, err) })
}

// Notify implements Collaborator.
func (m *Multi) Notify(ctx context.Context, event models.ChangeEvent) {
	m.each(func(c Collaborator) { c.Notify(ctx, event) })
}
