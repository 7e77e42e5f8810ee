package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskengine/internal/events"
	"github.com/phrazzld/taskengine/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEmitter captures emitted events for testing
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (r *recordingEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEmitter) emitted() []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.Event(nil), r.events...)
}

type sleepResult struct {
	Slept time.Duration `json:"slept"`
}

func notifySlept(result sleepResult) (*events.Event, error) {
	return events.NewEvent("job.sleep.completed", result)
}

func TestNotifyWith_PublishesOnSuccess(t *testing.T) {
	emitter := &recordingEmitter{}
	e := startedEngine(t, DefaultEngineConfig(), WithEmitter(emitter))

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (sleepResult, error) {
		return sleepResult{Slept: time.Millisecond}, nil
	}, NotifyWith(notifySlept))
	require.NoError(t, err)

	_, err = awaitFuture(t, future)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(emitter.emitted()) == 1 },
		time.Second, 5*time.Millisecond)
	event := emitter.emitted()[0]
	assert.Equal(t, "job.sleep.completed", event.Type)
	assert.Equal(t, future.ItemID(), event.SourceID)

	var payload sleepResult
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, time.Millisecond, payload.Slept)
}

func TestNotifyWith_SkippedOnFailure(t *testing.T) {
	emitter := &recordingEmitter{}
	e := startedEngine(t, DefaultEngineConfig(), WithEmitter(emitter))

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (sleepResult, error) {
		return sleepResult{}, errors.New("interrupted")
	}, NotifyWith(notifySlept))
	require.NoError(t, err)

	_, err = awaitFuture(t, future)
	require.Error(t, err)

	require.NoError(t, e.Stop(context.Background()))
	assert.Empty(t, emitter.emitted())
}

func TestNotifyWith_EmitFailureDoesNotFailWork(t *testing.T) {
	emitter := &recordingEmitter{err: errors.New("bus down")}
	e := startedEngine(t, DefaultEngineConfig(), WithEmitter(emitter))

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (sleepResult, error) {
		return sleepResult{Slept: time.Second}, nil
	}, NotifyWith(notifySlept))
	require.NoError(t, err)

	value, err := awaitFuture(t, future)
	require.NoError(t, err)
	assert.Equal(t, time.Second, value.Slept)

	require.NoError(t, e.Stop(context.Background()))
	assert.Len(t, emitter.emitted(), 1, "publish failures are not retried")
}

func TestNotifyWith_CallbackPanicKeepsItemCompleted(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	emitter := &recordingEmitter{}
	e := NewEngine(DefaultEngineConfig(), log, WithEmitter(emitter))
	require.NoError(t, e.Start())

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (int, error) {
		return 7, nil
	}, NotifyWith(func(int) (*events.Event, error) { panic("bad callback") }))
	require.NoError(t, err)

	value, err := awaitFuture(t, future)
	require.NoError(t, err)
	assert.Equal(t, 7, value)

	require.NoError(t, e.Stop(context.Background()))

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Empty(t, emitter.emitted())
	logger.AssertLogContains(t, buf, "failed to build completion event")
	logger.AssertLogContains(t, buf, "bad callback")
	assert.NotContains(t, buf.String(), "already delivered")
}

func TestNotifyWith_NilEventSkips(t *testing.T) {
	emitter := &recordingEmitter{}
	e := startedEngine(t, DefaultEngineConfig(), WithEmitter(emitter))

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (int, error) {
		return 1, nil
	}, NotifyWith(func(int) (*events.Event, error) { return nil, nil }))
	require.NoError(t, err)
	_, err = awaitFuture(t, future)
	require.NoError(t, err)

	require.NoError(t, e.Stop(context.Background()))
	assert.Empty(t, emitter.emitted())
}

func TestNotifyWith_TypeMismatch(t *testing.T) {
	e := startedEngine(t, DefaultEngineConfig(), WithEmitter(&recordingEmitter{}))

	future, err := Enqueue(context.Background(), e, func(ctx context.Context) (int, error) {
		return 1, nil
	}, NotifyWith(notifySlept))
	assert.Nil(t, future)
	assert.ErrorIs(t, err, ErrNotifierType)
}

func TestWithKind_EmptyKeepsDefault(t *testing.T) {
	o := enqueueOptions{kind: DefaultKind}
	WithKind("")(&o)
	assert.Equal(t, DefaultKind, o.kind)

	WithKind("report")(&o)
	assert.Equal(t, "report", o.kind)
}
