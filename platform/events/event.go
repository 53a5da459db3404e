// Package events is an in-process publish/subscribe bus. Handlers are keyed by
// event name, so publishers never import their subscribers.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to carry the timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with at, normally the service clock's now.
func NewBaseEvent(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus delivers events to the handlers subscribed to their name.
type Bus interface {
	// Publish runs handlers in the background and only logs their errors.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
