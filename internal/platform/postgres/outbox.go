package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskengine/internal/events"
)

// Execer is the part of *pgxpool.Pool (and pgx.Tx) the outbox needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertOutboxEvent = `
	INSERT INTO event_outbox (id, event_type, source_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5)
`

// OutboxEmitter implements events.EventEmitter by appending events to the
// event_outbox table. A separate relay is expected to ship and mark them.
type OutboxEmitter struct {
	db     Execer
	logger *slog.Logger
}

// NewOutboxEmitter creates an OutboxEmitter writing through db.
func NewOutboxEmitter(db Execer, logger *slog.Logger) *OutboxEmitter {
	return &OutboxEmitter{
		db:     db,
		logger: logger.With("component", "outbox_emitter"),
	}
}

// EmitEvent stores event in the outbox.
func (o *OutboxEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	tag, err := o.db.Exec(ctx, insertOutboxEvent,
		event.ID,
		event.Type,
		event.SourceID,
		[]byte(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		o.logger.Error("failed to store event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to store event %s: %w", event.ID, MapError(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("failed to store event %s: %d rows affected", event.ID, tag.RowsAffected())
	}

	o.logger.Debug("stored event", "event_id", event.ID, "event_type", event.Type)
	return nil
}

var _ events.EventEmitter = (*OutboxEmitter)(nil)
