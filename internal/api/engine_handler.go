package api

import (
	"net/http"

	"github.com/phrazzld/taskengine/internal/api/shared"
	"github.com/phrazzld/taskengine/internal/task"
)

// EngineHandler serves probes and statistics for the job engines.
type EngineHandler struct {
	engine *task.Engine
	keyed  *task.KeyedEngine
}

// NewEngineHandler creates an EngineHandler. keyed may be nil.
func NewEngineHandler(engine *task.Engine, keyed *task.KeyedEngine) *EngineHandler {
	return &EngineHandler{engine: engine, keyed: keyed}
}

// Health reports that the process is up.
func (h *EngineHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready reports 200 while the engine accepts work and 503 otherwise.
func (h *EngineHandler) Ready(w http.ResponseWriter, r *http.Request) {
	state := h.engine.State()
	if state != task.StateRunning {
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, ReadinessResponse{
			Status: "not_ready",
			State:  state.String(),
		})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ReadinessResponse{
		Status: "ready",
		State:  state.String(),
	})
}

// Stats returns the engine statistics snapshot.
func (h *EngineHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Stats())
}

// KeyedStats returns a statistics snapshot per key of the keyed engine.
func (h *EngineHandler) KeyedStats(w http.ResponseWriter, r *http.Request) {
	if h.keyed == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]task.Stats{})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.keyed.Stats())
}
