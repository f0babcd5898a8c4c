package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/httputil"
)

// StoryHandler handles project, chapter, snippet and note requests
type StoryHandler struct {
	storyService storySvc.StoryService
	logger       *slog.Logger
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyService storySvc.StoryService, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
		logger:       logger,
	}
}

// CreateProject creates a Drive-backed project with its first story
// POST /api/projects
func (h *StoryHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req storySvc.CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}

	project, err := h.storyService.CreateProject(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// ScanProject reads an existing Drive project folder into the store
// POST /api/projects/{id}/scan
func (h *StoryHandler) ScanProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}

	st, err := h.storyService.ScanRemoteProject(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, st)
}

// LoadStory reloads a Drive-backed story from its remote documents
// POST /api/stories/{id}/load
func (h *StoryHandler) LoadStory(w http.ResponseWriter, r *http.Request) {
	st, err := h.storyService.LoadRemoteStory(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, st)
}

// ExportStory downloads a story as a zip archive
// GET /api/stories/{id}/export
func (h *StoryHandler) ExportStory(w http.ResponseWriter, r *http.Request) {
	export, err := h.storyService.ExportStory(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Name))
	w.Header().Set("X-Yarny-Mirrored", strconv.FormatBool(export.Mirrored))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}

// CreateChapter appends a chapter to a story
// POST /api/stories/{id}/chapters
func (h *StoryHandler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	var req storySvc.CreateChapterRequest
	if !decode(w, r, &req) {
		return
	}
	req.StoryID = r.PathValue("id")

	chapter, err := h.storyService.CreateChapter(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, chapter)
}

// DeleteChapter removes a chapter and all of its snippets
// DELETE /api/chapters/{id}
func (h *StoryHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := h.storyService.DeleteChapter(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondNoContent(w)
}

// CreateSnippet appends a snippet to a chapter
// POST /api/chapters/{id}/snippets
func (h *StoryHandler) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req storySvc.CreateSnippetRequest
	if !decode(w, r, &req) {
		return
	}
	req.ChapterID = r.PathValue("id")

	snippet, err := h.storyService.CreateSnippet(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, snippet)
}

// SaveSnippet replaces a snippet's content
// PUT /api/snippets/{id}
func (h *StoryHandler) SaveSnippet(w http.ResponseWriter, r *http.Request) {
	var req storySvc.SaveSnippetRequest
	if !decode(w, r, &req) {
		return
	}
	req.SnippetID = r.PathValue("id")

	snippet, err := h.storyService.SaveSnippet(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// DeleteSnippet removes a snippet
// DELETE /api/snippets/{id}
func (h *StoryHandler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	if err := h.storyService.DeleteSnippet(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondNoContent(w)
}

// GetConflict compares a snippet with its remote document
// GET /api/snippets/{id}/conflict
// Returns 204 when the two agree
func (h *StoryHandler) GetConflict(w http.ResponseWriter, r *http.Request) {
	conflict, err := h.storyService.CheckConflict(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if conflict == nil {
		httputil.RespondNoContent(w)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conflict)
}

// ResolveConflict keeps the local content or accepts the remote one
// POST /api/snippets/{id}/conflict
func (h *StoryHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req storySvc.ResolveConflictRequest
	if !decode(w, r, &req) {
		return
	}
	req.SnippetID = r.PathValue("id")

	snippet, err := h.storyService.ResolveConflict(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// CreateNote adds a note to a story
// POST /api/stories/{id}/notes
func (h *StoryHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req storySvc.SaveNoteRequest
	if !decode(w, r, &req) {
		return
	}
	req.StoryID = r.PathValue("id")
	req.NoteID = ""

	note, err := h.storyService.SaveNote(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, note)
}

// SaveNote replaces a note
// PUT /api/notes/{id}
func (h *StoryHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req storySvc.SaveNoteRequest
	if !decode(w, r, &req) {
		return
	}
	req.NoteID = r.PathValue("id")

	note, err := h.storyService.SaveNote(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note
// DELETE /api/notes/{id}
func (h *StoryHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.storyService.DeleteNote(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondNoContent(w)
}
