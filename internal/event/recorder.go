package event

import (
	"context"
	"sync"
)

// Recorder is a Handler that keeps the most recent notifications.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	types  []string
	events []Event
}

// NewRecorder creates a recorder holding at most limit events (0 = unbounded).
func NewRecorder(limit int, eventTypes ...string) *Recorder {
	return &Recorder{limit: limit, types: eventTypes}
}

// Handle records the event, evicting the oldest one when full.
func (r *Recorder) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

// EventTypes implements Handler.
func (r *Recorder) EventTypes() []string {
	return r.types
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
