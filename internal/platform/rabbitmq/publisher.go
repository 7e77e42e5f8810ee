package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskengine/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeKind is the exchange type declared by SetupTopology. Events are
// routed by their type, so consumers bind with patterns such as "job.#".
const ExchangeKind = "topic"

// Publisher publishes events to a RabbitMQ exchange, using the event type as
// the routing key.
type Publisher struct {
	conn     ChannelRunner
	exchange string
	logger   *slog.Logger
}

// NewPublisher creates a Publisher for exchange.
func NewPublisher(conn ChannelRunner, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger.With("component", "amqp_publisher", "exchange", exchange),
	}
}

// SetupTopology declares the durable event exchange.
func (p *Publisher) SetupTopology(ctx context.Context) error {
	return p.conn.WithChannel(ctx, func(ch Channel) error {
		err := ch.ExchangeDeclare(
			p.exchange,   // name
			ExchangeKind, // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
		}
		return nil
	})
}

// EmitEvent publishes event as a persistent JSON message.
func (p *Publisher) EmitEvent(ctx context.Context, event *events.Event) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch Channel) error {
		if err := ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
			return fmt.Errorf("publish %s to %s: %w", event.Type, p.exchange, err)
		}

		p.logger.Debug("published event",
			"event_id", event.ID,
			"event_type", event.Type,
			"source_id", event.SourceID,
		)
		return nil
	})
}

func buildPublishing(event *events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         event.Type,
		Timestamp:    event.CreatedAt,
		Body:         body,
	}, nil
}

var _ events.EventEmitter = (*Publisher)(nil)
