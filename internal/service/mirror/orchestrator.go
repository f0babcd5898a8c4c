// Package mirror keeps an optional, best-effort copy of story content in a
// user-granted directory.
//
// Orchestrator writes never return an error. They report a Result and
// record failures in the shared Status, so a broken mirror can never fail
// the primary save path.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/service/paths"
)

// Result is the outcome of a single mirror write.
type Result struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Status is the observable mirror state.
type Status struct {
	Enabled      bool       `json:"enabled"`
	Permission   bool       `json:"permission"`
	Bound        bool       `json:"bound"`
	RootName     string     `json:"rootName,omitempty"`
	RootPath     string     `json:"rootPath,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	Error        string     `json:"error,omitempty"`
}

const unknownFailure = "mirror write failed"

// Orchestrator decides whether mirroring runs and funnels every entity write
// through the bound Repository.
type Orchestrator struct {
	mu           sync.Mutex
	enabled      bool
	permission   bool
	repo         *Repository
	ensured      map[string]bool
	lastSyncedAt *time.Time
	lastError    string

	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator returns a disabled orchestrator with no directory bound.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ensured: map[string]bool{},
		logger:  logger,
		now:     time.Now,
	}
}

// Enable binds a fresh repository to the granted directory and turns
// mirroring on. Story scaffolding is redone for the new binding.
func (o *Orchestrator) Enable(h *localfs.Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.repo = NewRepository(h)
	o.ensured = map[string]bool{}
	o.enabled = true
	o.permission = true
	o.lastError = ""
	o.logger.Info("mirror enabled", "root", h.Name, "path", h.Path)
}

// Disable turns mirroring off and releases the directory.
func (o *Orchestrator) Disable() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.enabled = false
	o.repo = nil
	o.ensured = map[string]bool{}
	o.logger.Info("mirror disabled")
}

// SetPermission records whether access to the bound directory is granted.
func (o *Orchestrator) SetPermission(granted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permission = granted
}

// Reset returns the orchestrator to its initial state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.enabled = false
	o.permission = false
	o.repo = nil
	o.ensured = map[string]bool{}
	o.lastSyncedAt = nil
	o.lastError = ""
}

// Status returns a copy of the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		Enabled:    o.enabled,
		Permission: o.permission,
		Bound:      o.repo != nil,
		Error:      o.lastError,
	}
	if o.repo != nil {
		s.RootName = o.repo.Handle().Name
		s.RootPath = o.repo.Handle().Path
	}
	if o.lastSyncedAt != nil {
		t := *o.lastSyncedAt
		s.LastSyncedAt = &t
	}
	return s
}

// active returns the bound repository when mirroring may run.
func (o *Orchestrator) active() (*Repository, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled || !o.permission || o.repo == nil {
		return nil, false
	}
	return o.repo, true
}

// ensure scaffolds a story once per repository binding.
func (o *Orchestrator) ensure(repo *Repository, storyID string) error {
	o.mu.Lock()
	done := o.repo == repo && o.ensured[storyID]
	o.mu.Unlock()
	if done {
		return nil
	}
	if err := repo.EnsureStoryStructure(storyID); err != nil {
		return err
	}
	o.mu.Lock()
	if o.repo == repo {
		o.ensured[storyID] = true
	}
	o.mu.Unlock()
	return nil
}

// run is the template every mirror write follows: skip when inactive,
// scaffold the story once, perform the write, then record the outcome.
func (o *Orchestrator) run(op, storyID string, write func(*Repository) error) Result {
	repo, ok := o.active()
	if !ok {
		return Result{Skipped: true}
	}

	err := o.guard(func() error {
		if storyID != "" {
			if err := o.ensure(repo, storyID); err != nil {
				return err
			}
		}
		return write(repo)
	})
	if err != nil {
		msg := describe(err)
		o.recordFailure(err, msg)
		o.logger.Warn("mirror write failed",
			"op", op,
			"story_id", storyID,
			"error", msg,
		)
		return Result{Error: msg}
	}
	o.recordSuccess()
	return Result{Success: true}
}

// guard converts a panic inside a write into an error.
func (o *Orchestrator) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic recovered in mirror write",
				"error", r,
				"stack", string(debug.Stack()),
			)
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = errors.New(unknownFailure)
		}
	}()
	return fn()
}

func (o *Orchestrator) recordSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.now().UTC()
	o.lastSyncedAt = &t
	o.lastError = ""
}

// recordFailure stores the message. A permission failure also blocks
// further writes until access is granted again.
func (o *Orchestrator) recordFailure(err error, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastError = msg
	if localfs.IsPermission(err) {
		o.permission = false
	}
}

// describe renders a mirror failure for the status indicator.
func describe(err error) string {
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr):
		return fmt.Sprintf("%s %s: %v", pathErr.Op, pathErr.Path, pathErr.Err)
	case err.Error() != "":
		return err.Error()
	default:
		return unknownFailure
	}
}

func (o *Orchestrator) MirrorSnippetWrite(storyID string, snippet *models.Snippet) Result {
	return o.run("snippet_write", storyID, func(r *Repository) error {
		return r.WriteSnippet(storyID, snippet)
	})
}

func (o *Orchestrator) MirrorSnippetDelete(storyID, snippetID string) Result {
	return o.run("snippet_delete", storyID, func(r *Repository) error {
		return r.DeleteSnippet(storyID, snippetID)
	})
}

func (o *Orchestrator) MirrorDataJSONWrite(storyID string, doc *models.DataDocument) Result {
	return o.run("data_json_write", storyID, func(r *Repository) error {
		return r.WriteMetadataJSON(storyID, paths.MetadataData, doc)
	})
}

func (o *Orchestrator) MirrorProjectJSONWrite(storyID string, doc *models.ProjectDocument) Result {
	return o.run("project_json_write", storyID, func(r *Repository) error {
		return r.WriteMetadataJSON(storyID, paths.MetadataProject, doc)
	})
}

func (o *Orchestrator) MirrorStoryMetadataWrite(storyID string, meta *StoryMetadata) Result {
	return o.run("story_metadata_write", storyID, func(r *Repository) error {
		return r.WriteMetadataJSON(storyID, paths.MetadataStory, meta)
	})
}

func (o *Orchestrator) MirrorStoryDocumentWrite(storyID, content string) Result {
	return o.run("story_document_write", storyID, func(r *Repository) error {
		return r.WriteStoryDocument(storyID, content)
	})
}

func (o *Orchestrator) MirrorNoteWrite(note *models.Note) Result {
	return o.run("note_write", note.StoryID, func(r *Repository) error {
		return r.WriteNote(note)
	})
}

func (o *Orchestrator) MirrorNoteDelete(storyID string, kind models.NoteKind, noteID string) Result {
	return o.run("note_delete", storyID, func(r *Repository) error {
		return r.DeleteNote(storyID, kind, noteID)
	})
}

func (o *Orchestrator) MirrorNoteOrderWrite(storyID string, kind models.NoteKind, noteIDs []string) Result {
	return o.run("note_order_write", storyID, func(r *Repository) error {
		return r.WriteNoteOrder(storyID, kind, noteIDs)
	})
}

func (o *Orchestrator) MirrorAttachmentWrite(storyID, attachmentID string, data []byte) Result {
	return o.run("attachment_write", storyID, func(r *Repository) error {
		return r.WriteAttachment(storyID, attachmentID, data)
	})
}

func (o *Orchestrator) MirrorExportWrite(name string, data []byte) Result {
	return o.run("export_write", "", func(r *Repository) error {
		return r.WriteExport(name, data)
	})
}
