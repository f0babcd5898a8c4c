package handler

import (
	"log/slog"
	"net/http"
	"time"

	"yarny/internal/httputil"
	"yarny/internal/service/outline"
	"yarny/internal/store"
)

// StateHandler exposes the store snapshot
type StateHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewStateHandler creates a new state handler
func NewStateHandler(st *store.Store, logger *slog.Logger) *StateHandler {
	return &StateHandler{
		store:  st,
		logger: logger,
	}
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *StateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}

// GetState returns the current normalized snapshot
// GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.store.Snapshot())
}

// GetOutline renders the snapshot as a text tree
// GET /debug/api/outline
func (h *StateHandler) GetOutline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(outline.Render(h.store.Snapshot())))
}
