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
	"yarny/internal/store"
)

// LocalProjects is the slice of the story service the local endpoints need.
type LocalProjects interface {
	ImportLocal(ctx context.Context, h *localfs.Handle) (*store.State, error)
	LoadLocal(ctx context.Context, h *localfs.Handle) (*store.State, error)
}

// LocalHandler handles local directory projects
type LocalHandler struct {
	projects LocalProjects
	open     OpenDir
	handles  storyRepo.HandleStore
	logger   *slog.Logger
}

// NewLocalHandler creates a new local project handler
func NewLocalHandler(projects LocalProjects, open OpenDir, handles storyRepo.HandleStore, logger *slog.Logger) *LocalHandler {
	return &LocalHandler{
		projects: projects,
		open:     open,
		handles:  handles,
		logger:   logger,
	}
}

// Import scans a directory into the store and writes its metadata caches
// POST /api/local/import
func (h *LocalHandler) Import(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.projects.ImportLocal)
}

// Load reads a previously imported directory
// POST /api/local/load
func (h *LocalHandler) Load(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.projects.LoadLocal)
}

func (h *LocalHandler) serve(w http.ResponseWriter, r *http.Request, run func(context.Context, *localfs.Handle) (*store.State, error)) {
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
	st, err := run(r.Context(), dir)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	// The grant is remembered for the next start; losing it only costs a
	// re-prompt.
	record := &storyRepo.HandleRecord{Path: dir.Path, Name: dir.Name, GrantedAt: time.Now().UTC()}
	if err := h.handles.Save(r.Context(), record); err != nil {
		h.logger.Warn("failed to persist local handle", "path", dir.Path, "error", err)
	}

	httputil.RespondJSON(w, http.StatusOK, st)
}
