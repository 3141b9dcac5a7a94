// Package event carries UI-facing notifications from the API client to
// whoever displays them. Publishers and subscribers never reference each
// other; the Bus is the only integration point.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TypeAPIError is raised for every failed backend request.
const TypeAPIError = "api.error"

// Event is a single notification. Message is the one display string UI code
// consumes; the remaining fields are diagnostic.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Endpoint   string    `json:"endpoint,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAPIError builds an api.error notification.
func NewAPIError(message, endpoint string, statusCode int, requestID string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       TypeAPIError,
		Message:    message,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler handles notifications
type Handler interface {
	// Handle processes a notification
	Handle(ctx context.Context, e Event) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice means the handler receives all events.
	EventTypes() []string
}

// Publisher publishes notifications
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Subscriber manages handler subscriptions
type Subscriber interface {
	Subscribe(handler Handler, eventTypes ...string)
	Unsubscribe(handler Handler)
}

type funcHandler struct {
	fn    func(ctx context.Context, e Event) error
	types []string
}

func (h *funcHandler) Handle(ctx context.Context, e Event) error { return h.fn(ctx, e) }
func (h *funcHandler) EventTypes() []string                     { return h.types }

// HandlerFunc adapts a function to a Handler. The returned value is a
// pointer so it can later be passed to Unsubscribe.
func HandlerFunc(fn func(ctx context.Context, e Event) error, eventTypes ...string) Handler {
	return &funcHandler{fn: fn, types: eventTypes}
}
