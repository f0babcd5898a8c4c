package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"yarny/internal/config"
	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/service/importer"
	"yarny/internal/service/remote"
	"yarny/internal/store"
	"yarny/internal/utils"
)

func validNoteKind(value any) error {
	kind, _ := value.(models.NoteKind)
	if !kind.Valid() {
		return errors.New("unknown note kind")
	}
	return nil
}

// SaveNote creates a note when NoteID is empty or unknown, otherwise
// replaces it. A note keeps its kind for life.
func (s *Service) SaveNote(ctx context.Context, req *storySvc.SaveNoteRequest) (*models.Note, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.StoryID, validation.Required),
		validation.Field(&req.Kind, validation.Required, validation.By(validNoteKind)),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.Content, validation.Length(0, config.MaxSnippetContentLength)),
		validation.Field(&req.Order, validation.Min(0)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	t, err := s.resolveStory(st, req.StoryID)
	if err != nil {
		return nil, err
	}

	existing, found := st.Notes[req.NoteID]
	if found && (existing.StoryID != req.StoryID || existing.Kind != req.Kind) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("note %s belongs to another story or kind", req.NoteID)}
	}

	note := models.Note{
		ID:      req.NoteID,
		StoryID: req.StoryID,
		Kind:    req.Kind,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
	}
	switch {
	case req.Order != nil:
		note.Order = *req.Order
	case found:
		note.Order = existing.Order
	default:
		note.Order = len(st.NotesOf(req.StoryID, req.Kind))
	}
	note.UpdatedAt = s.stamp()
	if found {
		note.UpdatedAt = later(note.UpdatedAt, existing.UpdatedAt)
	} else {
		note.ID = newNoteID(t, st, req.NoteID, req.Kind, note.Title)
	}

	p := &models.Payload{Notes: []models.Note{note}}
	preview := st.With(p)
	if t.local() {
		if err := s.writeLocalNote(t, &note); err != nil {
			return nil, err
		}
		if err := s.writeLocalNoteOrder(t, preview, note.Kind); err != nil {
			return nil, err
		}
	} else if _, err := s.remote.WriteNotesJSON(ctx, t.story.DriveFileID, remote.BuildNotesDocument(preview, t.story.ID)); err != nil {
		return nil, err
	}

	next := s.store.UpsertEntities(p)
	saved := next.Notes[note.ID]
	s.mirror.MirrorNoteWrite(saved)
	s.mirror.MirrorNoteOrderWrite(saved.StoryID, saved.Kind, noteIDs(next, saved.StoryID, saved.Kind))
	s.logger.Info("note saved",
		"story_id", saved.StoryID,
		"note_id", saved.ID,
		"kind", saved.Kind,
		"created", !found,
	)
	return saved, nil
}

// DeleteNote removes a note from storage and the store.
func (s *Service) DeleteNote(ctx context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	note, ok := st.Notes[noteID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("note %s not found", noteID)}
	}
	t, err := s.resolveStory(st, note.StoryID)
	if err != nil {
		return err
	}
	preview := st.WithoutNote(noteID)

	if t.local() {
		if err := s.removeLocalNote(t, note); err != nil {
			return err
		}
		if err := s.writeLocalNoteOrder(t, preview, note.Kind); err != nil {
			return err
		}
	} else if _, err := s.remote.WriteNotesJSON(ctx, t.story.DriveFileID, remote.BuildNotesDocument(preview, t.story.ID)); err != nil {
		return err
	}

	next := s.store.RemoveNote(noteID)
	s.mirror.MirrorNoteDelete(note.StoryID, note.Kind, noteID)
	s.mirror.MirrorNoteOrderWrite(note.StoryID, note.Kind, noteIDs(next, note.StoryID, note.Kind))
	s.logger.Info("note deleted",
		"story_id", note.StoryID,
		"note_id", noteID,
	)
	return nil
}

// newNoteID keeps a caller-chosen id for Drive notes. Local note ids are
// derived from the file name the note will get.
func newNoteID(t *target, st *store.State, requested string, kind models.NoteKind, title string) string {
	if !t.local() {
		if requested != "" {
			return requested
		}
		return utils.NewID("note")
	}
	base := importer.Slug(title)
	if base == "" {
		base = "note"
	}
	id := importer.NoteID(kind, base)
	for i := 2; ; i++ {
		if _, taken := st.Notes[id]; !taken {
			return id
		}
		id = importer.NoteID(kind, fmt.Sprintf("%s-%d", base, i))
	}
}

func noteIDs(st *store.State, storyID string, kind models.NoteKind) []string {
	ids := []string{}
	for _, note := range st.NotesOf(storyID, kind) {
		ids = append(ids, note.ID)
	}
	return ids
}
