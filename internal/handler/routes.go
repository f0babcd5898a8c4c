package handler

import "net/http"

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	State  *StateHandler
	Story  *StoryHandler
	Local  *LocalHandler
	Mirror *MirrorHandler
	Debug  bool
}

// RegisterRoutes mounts every endpoint on mux (Go 1.22+ patterns).
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", h.State.HealthCheck)
	mux.HandleFunc("GET /api/state", h.State.GetState)

	// Projects and stories
	mux.HandleFunc("POST /api/projects", h.Story.CreateProject)
	mux.HandleFunc("POST /api/projects/{id}/scan", h.Story.ScanProject)
	mux.HandleFunc("POST /api/stories/{id}/load", h.Story.LoadStory)
	mux.HandleFunc("GET /api/stories/{id}/export", h.Story.ExportStory)
	mux.HandleFunc("POST /api/stories/{id}/chapters", h.Story.CreateChapter)
	mux.HandleFunc("POST /api/stories/{id}/notes", h.Story.CreateNote)

	// Chapters and snippets
	mux.HandleFunc("DELETE /api/chapters/{id}", h.Story.DeleteChapter)
	mux.HandleFunc("POST /api/chapters/{id}/snippets", h.Story.CreateSnippet)
	mux.HandleFunc("PUT /api/snippets/{id}", h.Story.SaveSnippet)
	mux.HandleFunc("DELETE /api/snippets/{id}", h.Story.DeleteSnippet)
	mux.HandleFunc("GET /api/snippets/{id}/conflict", h.Story.GetConflict)
	mux.HandleFunc("POST /api/snippets/{id}/conflict", h.Story.ResolveConflict)

	// Notes
	mux.HandleFunc("PUT /api/notes/{id}", h.Story.SaveNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.Story.DeleteNote)

	// Local directory projects
	mux.HandleFunc("POST /api/local/import", h.Local.Import)
	mux.HandleFunc("POST /api/local/load", h.Local.Load)

	// Backup mirror
	mux.HandleFunc("GET /api/mirror", h.Mirror.GetStatus)
	mux.HandleFunc("POST /api/mirror", h.Mirror.Enable)
	mux.HandleFunc("DELETE /api/mirror", h.Mirror.Disable)
	mux.HandleFunc("POST /api/mirror/refresh", h.Mirror.Refresh)

	if h.Debug {
		mux.HandleFunc("GET /debug/api/outline", h.State.GetOutline)
	}
}
