package event

import "context"

// Event is an in-process domain event identified by a stable name.
type Event interface {
	EventName() string
}

// Handler processes one event. Errors are logged by the bus, not retried.
type Handler func(ctx context.Context, e Event) error

// Publisher enqueues events for asynchronous fanout.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
