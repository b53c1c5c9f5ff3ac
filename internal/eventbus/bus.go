package eventbus

import (
	"context"
	"errors"
)

// ErrBufferFull is returned when a subscriber's buffer is full and the event
// is dropped for it.
var ErrBufferFull = errors.New("event bus buffer full, event dropped")

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Handler processes one delivered event. Handlers for a single subscription
// are invoked sequentially in publish order.
type Handler func(ctx context.Context, ev Event)

// Bus routes typed events from publishers to topic subscribers.
type Bus interface {
	// Subscribe registers a handler for a topic and returns a handle the
	// subscriber owns; cancelling it stops delivery deterministically.
	Subscribe(topic Topic, h Handler) (*Subscription, error)

	// Publish queues an event for async delivery to all subscribers of its
	// topic. Non-blocking; returns ErrBufferFull if any subscriber's queue
	// was full (remaining subscribers still receive the event).
	Publish(ev Event) error

	// Stats returns current bus statistics.
	Stats() Stats

	// Close stops delivery, attempting to drain queued events.
	// The context deadline controls how long to wait.
	Close(ctx context.Context) error
}

// Stats holds bus statistics.
type Stats struct {
	Published     int64 `json:"published"`     // total events published
	Delivered     int64 `json:"delivered"`     // handler invocations completed
	Dropped       int64 `json:"dropped"`       // events dropped on full subscriber queues
	Subscriptions int   `json:"subscriptions"` // currently active subscriptions
}
