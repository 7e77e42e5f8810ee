package api

import (
	"github.com/google/uuid"
)

// SleepJobRequest defines the payload for the demo sleep job endpoint.
type SleepJobRequest struct {
	// DurationMs is how long the job sleeps.
	DurationMs int `json:"duration_ms" validate:"required,min=1,max=600000"`

	// Key serializes jobs: jobs with the same key never run concurrently.
	Key string `json:"key" validate:"max=64"`

	// Label is echoed back in the completion event.
	Label string `json:"label" validate:"max=64"`
}

// SleepJobResult is the result of a sleep job and the payload of its
// completion event.
type SleepJobResult struct {
	Key     string `json:"key,omitempty"`
	Label   string `json:"label,omitempty"`
	SleptMs int64  `json:"slept_ms"`
}

// JobAcceptedResponse is returned when a job has been queued.
type JobAcceptedResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
}

// ReadinessResponse reports whether the engine accepts work.
type ReadinessResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}
