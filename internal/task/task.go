package task

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Work is a unit of deferred execution. It must observe ctx: cancellation is
// cooperative and the engine never aborts a running Work on its own.
type Work[T any] func(ctx context.Context) (T, error)

// DefaultKind labels work items enqueued without WithKind.
const DefaultKind = "default"

// FullMode selects what TaskQueue.Put does when the queue is at capacity.
type FullMode int

// Full-queue policies
const (
	// FullModeWait suspends the producer until space frees, FIFO across waiters.
	FullModeWait FullMode = iota
	// FullModeDropOldest evicts the oldest queued item to admit the new one.
	FullModeDropOldest
	// FullModeThrowException rejects the new item with ErrCapacityExceeded.
	FullModeThrowException
)

// String returns the configuration name of the mode.
func (m FullMode) String() string {
	switch m {
	case FullModeWait:
		return "wait"
	case FullModeDropOldest:
		return "drop_oldest"
	case FullModeThrowException:
		return "throw_exception"
	default:
		return fmt.Sprintf("FullMode(%d)", int(m))
	}
}

// ParseFullMode converts a configuration value into a FullMode.
// Matching is case-insensitive; an empty string selects FullModeWait.
func ParseFullMode(s string) (FullMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wait":
		return FullModeWait, nil
	case "drop_oldest", "dropoldest":
		return FullModeDropOldest, nil
	case "throw_exception", "throwexception", "throw":
		return FullModeThrowException, nil
	default:
		return FullModeWait, fmt.Errorf("unknown channel full mode %q", s)
	}
}

// State is a step of the engine lifecycle. Transitions only move forward:
// Created -> Running -> Draining -> Stopped.
type State int32

// Engine lifecycle states
const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateStopped
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateCreated, StateRunning, StateDraining, StateStopped} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown engine state %q", text)
}

// EngineConfig holds the options bound to an Engine at construction.
type EngineConfig struct {
	// MaxConcurrentWorkers is the number of worker goroutines.
	// Values below 1 are coerced to 1.
	MaxConcurrentWorkers int

	// ChannelCapacity bounds the number of queued items.
	// Zero means unbounded, which disables backpressure.
	ChannelCapacity int

	// ChannelFullMode is applied when the queue is at capacity.
	ChannelFullMode FullMode

	// UseGlobalStoppingToken links every item's context to the engine's
	// stopping signal so queued and running work observe shutdown.
	UseGlobalStoppingToken bool

	// EnableDetailedLogging emits per-item debug logs. It has no behavioral effect.
	EnableDetailedLogging bool

	// DrainTimeout bounds Stop when its context has no earlier deadline.
	// If zero, defaults to 30 seconds.
	DrainTimeout time.Duration
}

// DefaultEngineConfig returns an EngineConfig with the documented defaults:
// one worker, an unbounded queue and the Wait policy.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrentWorkers: 1,
		ChannelCapacity:      0,
		ChannelFullMode:      FullModeWait,
		DrainTimeout:         30 * time.Second,
	}
}
