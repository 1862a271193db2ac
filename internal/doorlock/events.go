package doorlock

import (
	"sync"
	"time"

	"github.com/kozaktomas/doorlock/internal/constants"
)

// EventType names an observable outcome.
type EventType string

const (
	EventGranted      EventType = "granted"
	EventDenied       EventType = "denied"
	EventEnrolled     EventType = "enrolled"
	EventDeleted      EventType = "deleted"
	EventManualUnlock EventType = "manual_unlock"
)

// Event is one reported outcome. ID is the gallery id for granted, enrolled
// and deleted events and -1 otherwise.
type Event struct {
	Type    EventType `json:"type"`
	ID      int       `json:"id"`
	CycleID string    `json:"cycle_id,omitempty"`
	Region  int       `json:"region,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Broadcaster fans events out to listeners and remembers the latest one.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	last      *Event
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all listeners without blocking.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &e
	for _, listener := range b.listeners {
		select {
		case listener <- e:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Last returns the most recent event, if any.
func (b *Broadcaster) Last() (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Event{}, false
	}
	return *b.last, true
}
