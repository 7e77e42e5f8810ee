package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// KeyedEngine runs work sequentially per key and concurrently across keys.
// Each key is routed to its own single-worker Engine, created on first use
// with the capacity and full-queue policy of the base config.
//
// Sub-engines live until Stop; keys are not reclaimed when idle.
type KeyedEngine struct {
	config EngineConfig
	logger *slog.Logger
	opts   []EngineOption

	mu      sync.Mutex
	engines map[string]*Engine
	state   State

	stopped chan struct{}
	stopErr error
}

// NewKeyedEngine creates a keyed engine in the Created state. opts are
// applied to every sub-engine; WithName is set per key.
func NewKeyedEngine(config EngineConfig, logger *slog.Logger, opts ...EngineOption) *KeyedEngine {
	config.MaxConcurrentWorkers = 1
	return &KeyedEngine{
		config:  config,
		logger:  logger.With("component", "keyed_task_engine"),
		opts:    opts,
		engines: make(map[string]*Engine),
		state:   StateCreated,
		stopped: make(chan struct{}),
	}
}

// Start allows work to be enqueued. Sub-engines created before Start are
// started as well.
func (k *KeyedEngine) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch k.state {
	case StateRunning:
		return nil
	case StateCreated:
	default:
		return ErrEngineStopped
	}

	for key, e := range k.engines {
		if err := e.Start(); err != nil {
			return fmt.Errorf("failed to start engine for key %q: %w", key, err)
		}
	}
	k.state = StateRunning
	k.logger.Info("keyed task engine started", "keys", len(k.engines))
	return nil
}

// Stop stops every sub-engine concurrently with the same ctx. The returned
// error joins the sub-engine failures, each wrapping ErrShutdownAborted when
// its drain window elapsed.
//
// Concurrent and repeated calls wait for the same shutdown and return its
// result, or ctx.Err() if ctx ends first.
func (k *KeyedEngine) Stop(ctx context.Context) error {
	k.mu.Lock()
	if k.state == StateDraining || k.state == StateStopped {
		k.mu.Unlock()
		select {
		case <-k.stopped:
			return k.stopErr
		default:
		}
		select {
		case <-k.stopped:
			return k.stopErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	k.state = StateDraining
	keys := make([]string, 0, len(k.engines))
	engines := make([]*Engine, 0, len(k.engines))
	for key, e := range k.engines {
		keys = append(keys, key)
		engines = append(engines, e)
	}
	k.mu.Unlock()

	k.logger.Info("stopping keyed task engine", "keys", len(engines))

	var g errgroup.Group
	errs := make([]error, len(engines))
	for i, e := range engines {
		g.Go(func() error {
			if err := e.Stop(ctx); err != nil {
				errs[i] = fmt.Errorf("key %q: %w", keys[i], err)
			}
			return errs[i]
		})
	}
	if g.Wait() != nil {
		k.stopErr = errors.Join(errs...)
	}

	k.mu.Lock()
	k.state = StateStopped
	k.mu.Unlock()
	close(k.stopped)

	k.logger.Info("keyed task engine stopped", "keys", len(engines), "error", k.stopErr)
	return k.stopErr
}

// Keys returns the keys that have a sub-engine, sorted.
func (k *KeyedEngine) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys := make([]string, 0, len(k.engines))
	for key := range k.engines {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot per key.
func (k *KeyedEngine) Stats() map[string]Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	stats := make(map[string]Stats, len(k.engines))
	for key, e := range k.engines {
		stats[key] = e.Stats()
	}
	return stats
}

// engine returns the running sub-engine for key, creating it if needed.
func (k *KeyedEngine) engine(key string) (*Engine, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.state != StateRunning {
		return nil, fmt.Errorf("%w: state %s", ErrEngineNotRunning, k.state)
	}
	if e, ok := k.engines[key]; ok {
		return e, nil
	}

	opts := append([]EngineOption{}, k.opts...)
	opts = append(opts, WithName("keyed:"+key))
	e := NewEngine(k.config, k.logger.With("key", key), opts...)
	if err := e.Start(); err != nil {
		return nil, err
	}
	k.engines[key] = e
	k.logger.Debug("created engine for key", "key", key, "keys", len(k.engines))
	return e, nil
}

// EnqueueKeyed enqueues work on the sub-engine for key. Items with the same
// key run one at a time in admission order.
func EnqueueKeyed[T any](
	ctx context.Context,
	k *KeyedEngine,
	key string,
	work Work[T],
	opts ...EnqueueOption,
) (*Future[T], error) {
	e, err := k.engine(key)
	if err != nil {
		return nil, err
	}
	return Enqueue(ctx, e, work, opts...)
}
