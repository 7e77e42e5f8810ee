package api

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/taskengine/internal/api/shared"
	"github.com/phrazzld/taskengine/internal/events"
	"github.com/phrazzld/taskengine/internal/platform/logger"
	"github.com/phrazzld/taskengine/internal/task"
)

const (
	// SleepJobKind labels sleep jobs in logs and metrics.
	SleepJobKind = "sleep"

	// SleepJobCompletedEvent is emitted when a sleep job finishes.
	SleepJobCompletedEvent = "job.sleep.completed"
)

// JobHandler submits demo jobs to an engine. Jobs that carry a key go to
// the keyed engine instead, so jobs sharing a key run one at a time.
type JobHandler struct {
	engine *task.Engine
	keyed  *task.KeyedEngine
}

// NewJobHandler creates a JobHandler. keyed may be nil, in which case keyed
// jobs are rejected.
func NewJobHandler(engine *task.Engine, keyed *task.KeyedEngine) *JobHandler {
	return &JobHandler{engine: engine, keyed: keyed}
}

// SubmitSleep queues a job that sleeps for the requested duration and emits
// a completion event when done. It responds as soon as the job is admitted;
// the event's source_id is the returned job ID.
func (h *JobHandler) SubmitSleep(w http.ResponseWriter, r *http.Request) {
	var req SleepJobRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if req.Key != "" && h.keyed == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Keyed jobs are not enabled")
		return
	}

	// The job outlives the request; only the request-scoped values carry over.
	ctx := context.WithoutCancel(r.Context())
	duration := time.Duration(req.DurationMs) * time.Millisecond

	work := func(ctx context.Context) (SleepJobResult, error) {
		timer := time.NewTimer(duration)
		defer timer.Stop()

		start := time.Now()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return SleepJobResult{}, ctx.Err()
		}
		return SleepJobResult{
			Key:     req.Key,
			Label:   req.Label,
			SleptMs: time.Since(start).Milliseconds(),
		}, nil
	}
	opts := []task.EnqueueOption{
		task.WithKind(SleepJobKind),
		task.NotifyWith(func(result SleepJobResult) (*events.Event, error) {
			return events.NewEvent(SleepJobCompletedEvent, result)
		}),
	}

	var future *task.Future[SleepJobResult]
	var err error
	if req.Key != "" {
		future, err = task.EnqueueKeyed(ctx, h.keyed, req.Key, work, opts...)
	} else {
		future, err = task.Enqueue(ctx, h.engine, work, opts...)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	logger.FromContext(r.Context()).Info("sleep job queued",
		"job_id", future.ItemID(),
		"key", req.Key,
		"duration_ms", req.DurationMs)

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		JobID:  future.ItemID(),
		Kind:   SleepJobKind,
		Status: "queued",
	})
}
