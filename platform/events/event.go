// Package events is the in-process publish/subscribe bus that lets the job
// lifecycle notify clients and fixers without importing the notifier.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// JobScoped is implemented by events that belong to one job. The bus adds
// the job ID to handler failure logs.
type JobScoped interface {
	JobRef() int64
}

// BaseEvent carries the publish timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to the handlers subscribed to their name.
type Bus interface {
	// Publish hands the event to every handler without waiting.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every handler and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers a handler for Event.EventName() == eventName.
	Subscribe(eventName string, handler Handler)
}

func logAttrs(event Event, err error) []any {
	attrs := []any{slog.String("event", event.EventName()), slog.String("error", err.Error())}
	if scoped, ok := event.(JobScoped); ok {
		attrs = append(attrs, slog.Int64("job_id", scoped.JobRef()))
	}
	return attrs
}
