package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	storyRepo "yarny/internal/domain/repositories/story"
	"yarny/internal/httputil"
	"yarny/internal/localfs"
	"yarny/internal/service/mirror"
	"yarny/internal/store"
)

// Mirror is the slice of the orchestrator the mirror endpoints drive.
type Mirror interface {
	Enable(h *localfs.Handle)
	Disable()
	Status() mirror.Status
	RefreshAll(ctx context.Context, st *store.State) mirror.RefreshResult
}

// MirrorHandler handles the local backup mirror
type MirrorHandler struct {
	mirror  Mirror
	store   *store.Store
	open    OpenDir
	handles storyRepo.HandleStore
	logger  *slog.Logger
}

// NewMirrorHandler creates a new mirror handler
func NewMirrorHandler(m Mirror, st *store.Store, open OpenDir, handles storyRepo.HandleStore, logger *slog.Logger) *MirrorHandler {
	return &MirrorHandler{
		mirror:  m,
		store:   st,
		open:    open,
		handles: handles,
		logger:  logger,
	}
}

// GetStatus reports whether mirroring is enabled and bound
// GET /api/mirror
func (h *MirrorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.mirror.Status())
}

// Enable binds the mirror to a directory and turns it on
// POST /api/mirror
func (h *MirrorHandler) Enable(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}

	dir, err := h.open(req.Path)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	h.mirror.Enable(dir)

	record := &storyRepo.HandleRecord{Path: dir.Path, Name: dir.Name, MirrorEnabled: true, GrantedAt: time.Now().UTC()}
	if err := h.handles.Save(r.Context(), record); err != nil {
		h.logger.Warn("failed to persist mirror handle", "path", dir.Path, "error", err)
	}

	httputil.RespondJSON(w, http.StatusOK, h.mirror.Status())
}

// Disable turns mirroring off and forgets the directory
// DELETE /api/mirror
func (h *MirrorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.mirror.Disable()
	if err := h.handles.Clear(r.Context()); err != nil {
		h.logger.Warn("failed to clear mirror handle", "error", err)
	}
	httputil.RespondNoContent(w)
}

// Refresh rewrites every story in the store into the mirror
// POST /api/mirror/refresh
func (h *MirrorHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res := h.mirror.RefreshAll(r.Context(), h.store.Snapshot())
	if !res.Success && !res.Skipped {
		httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, res.Message, map[string]interface{}{
			"stories": res.Stories,
		})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, res)
}
