package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/taskengine/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type fakeRunner struct {
	ch *fakeChannel
}

func (r fakeRunner) WithChannel(ctx context.Context, fn func(ch Channel) error) error {
	if r.ch == nil {
		return ErrNoChannel
	}
	return fn(r.ch)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvent(t *testing.T) *events.Event {
	t.Helper()
	event, err := events.NewEvent("job.sleep.completed", map[string]int{"slept_ms": 10})
	require.NoError(t, err)
	return event
}

func TestBuildPublishing(t *testing.T) {
	event := newTestEvent(t)

	msg, err := buildPublishing(event)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, event.ID.String(), msg.MessageId)
	assert.Equal(t, event.Type, msg.Type)
	assert.Equal(t, event.CreatedAt, msg.Timestamp)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.JSONEq(t, `{"slept_ms":10}`, string(decoded.Payload))
}

func TestPublisher_EmitEvent(t *testing.T) {
	ch := &fakeChannel{}
	publisher := NewPublisher(fakeRunner{ch: ch}, "taskengine.events", testLogger())
	event := newTestEvent(t)

	require.NoError(t, publisher.EmitEvent(context.Background(), event))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "taskengine.events", ch.published[0].exchange)
	assert.Equal(t, "job.sleep.completed", ch.published[0].key, "routing key is the event type")
	assert.Equal(t, event.ID.String(), ch.published[0].msg.MessageId)
}

func TestPublisher_EmitEventError(t *testing.T) {
	brokerErr := errors.New("channel closed")
	publisher := NewPublisher(fakeRunner{ch: &fakeChannel{publishErr: brokerErr}}, "taskengine.events", testLogger())

	err := publisher.EmitEvent(context.Background(), newTestEvent(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "job.sleep.completed")
}

func TestPublisher_NoChannel(t *testing.T) {
	publisher := NewPublisher(fakeRunner{}, "taskengine.events", testLogger())

	err := publisher.EmitEvent(context.Background(), newTestEvent(t))
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestPublisher_SetupTopology(t *testing.T) {
	ch := &fakeChannel{}
	publisher := NewPublisher(fakeRunner{ch: ch}, "taskengine.events", testLogger())

	require.NoError(t, publisher.SetupTopology(context.Background()))
	assert.Equal(t, []string{"taskengine.events:topic"}, ch.declared)
}
