package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskengine/internal/events"
)

// EnqueueingHandler implements the events.EventHandler interface by running
// another handler as background work on an engine. The emitter that calls it
// returns as soon as the work is admitted.
type EnqueueingHandler struct {
	engine  *Engine
	handler events.EventHandler
	// types restricts which events are enqueued; empty accepts all
	types  map[string]struct{}
	logger *slog.Logger
}

// NewEnqueueingHandler creates a handler that enqueues handler on engine for
// every event whose type is in eventTypes, or for every event if none are given.
func NewEnqueueingHandler(
	engine *Engine,
	handler events.EventHandler,
	logger *slog.Logger,
	eventTypes ...string,
) *EnqueueingHandler {
	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	return &EnqueueingHandler{
		engine:  engine,
		handler: handler,
		types:   types,
		logger:  logger.With("component", "enqueueing_event_handler"),
	}
}

// HandleEvent enqueues the wrapped handler for event. The work does not
// inherit ctx's cancellation, since the emitter's context usually ends before
// the work runs. It returns an error only if the work could not be admitted.
func (h *EnqueueingHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if len(h.types) > 0 {
		if _, ok := h.types[event.Type]; !ok {
			h.logger.Debug("ignoring event with unsupported type",
				"event_type", event.Type,
				"event_id", event.ID)
			return nil
		}
	}

	work := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.handler.HandleEvent(ctx, event)
	}

	future, err := Enqueue(context.WithoutCancel(ctx), h.engine, work, WithKind("event:"+event.Type))
	if err != nil {
		h.logger.Error("failed to enqueue event handler",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type)
		return fmt.Errorf("failed to enqueue handler for event %s: %w", event.ID, err)
	}

	h.logger.Debug("event handler enqueued",
		"item_id", future.ItemID(),
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Ensure EnqueueingHandler implements events.EventHandler
var _ events.EventHandler = (*EnqueueingHandler)(nil)
