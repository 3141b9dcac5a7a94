package event

import (
	"context"

	"go.uber.org/zap"
)

// Bus is a synchronous in-memory notification bus.
type Bus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewBus creates a new notification bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events to all matching handlers synchronously. A failing
// or panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		for _, handler := range b.registry.GetHandlers(e.Type) {
			if err := b.dispatch(ctx, handler, e); err != nil {
				b.logger.Error("notification handler failed",
					zap.String("event_type", e.Type),
					zap.String("event_id", e.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. With no explicit types the handler's own
// EventTypes are used; an empty set subscribes to everything.
func (b *Bus) Subscribe(handler Handler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(handler Handler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	return b.registry.Len()
}

func (b *Bus) dispatch(ctx context.Context, handler Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("notification handler panicked",
				zap.String("event_type", e.Type),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, e)
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)
