// Package events is the in-process signal bus between the capture session,
// the record browser and whatever front end drives them.
package events

import (
	"sync"
	"time"
)

// Type identifies an event.
type Type string

const (
	// FolderResolved fires when a submission has settled on a destination
	// folder, created or found.
	FolderResolved Type = "folder_resolved"
	// AnalysisCompleted fires after a note was created by a submission.
	AnalysisCompleted Type = "analysis_completed"
	// RefreshRequested asks every cached view to reload from the backend.
	RefreshRequested Type = "refresh_requested"
	// NavigateRecords asks the front end to switch to the records view.
	NavigateRecords Type = "navigate_records"
	FolderDeleted   Type = "folder_deleted"
	NoteDeleted     Type = "note_deleted"
)

// Event is one signal on the bus.
type Event struct {
	Type       Type
	FolderID   int64
	NoteID     int64
	OccurredAt time.Time
}

// EventType returns the event code.
func (e Event) EventType() string {
	return string(e.Type)
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Type][]subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]subscription)}
}

// Subscribe registers h for events of type t. The returned func removes it.
func (b *Bus) Subscribe(t Type, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every handler subscribed to its type. A nil bus
// drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[e.Type]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}
