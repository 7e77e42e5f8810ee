package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newTestItem builds a standalone work item, outside any engine, whose
// future resolves with the error returned by exec.
func newTestItem(exec func(ctx context.Context) error) (*WorkItem, *Future[struct{}]) {
	id := uuid.New()
	future := newFuture[struct{}](id)
	ctx, cancel := context.WithCancelCause(context.Background())

	item := &WorkItem{
		id:         id,
		kind:       "test",
		enqueuedAt: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		sink:       future,
	}
	item.execute = func(ctx context.Context) error {
		if exec != nil {
			if err := exec(ctx); err != nil {
				return err
			}
		}
		if !future.resolve(struct{}{}, nil) {
			return errSuperseded
		}
		return nil
	}
	return item, future
}

// startedEngine returns a running engine that is stopped when the test ends.
func startedEngine(t *testing.T, config EngineConfig, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(config, setupTestLogger(), opts...)
	require.NoError(t, e.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e
}

// awaitFuture waits for f with a test timeout.
func awaitFuture[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	select {
	case <-f.Done():
		return f.Result()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for future")
		var zero T
		return zero, nil
	}
}

// gate blocks work until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (g *gate) work(ctx context.Context) (int, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return 1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for work to start")
	}
}

func (g *gate) open() {
	close(g.release)
}
