package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a notification raised after a unit of background work completes.
// It carries no dependency on the task package; the producer chooses the
// type and payload.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names what happened, e.g. "job.sleep.completed"
	Type string `json:"type"`

	// SourceID is the ID of the work item that produced the event, if any
	SourceID uuid.UUID `json:"source_id"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts an ordinary function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}

// ForwardTo returns a handler that re-emits every event it receives through
// emitter, so external sinks can be registered on an InMemoryEventEmitter.
func ForwardTo(emitter EventEmitter) EventHandler {
	return EventHandlerFunc(func(ctx context.Context, event *Event) error {
		return emitter.EmitEvent(ctx, event)
	})
}
