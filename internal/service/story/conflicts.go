package story

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/service/remote"
)

// CheckConflict returns the snippet's conflict with its remote document, or
// nil. Local projects have no remote copy and never conflict.
func (s *Service) CheckConflict(ctx context.Context, snippetID string) (*models.Conflict, error) {
	st := s.store.Snapshot()
	snippet, t, err := s.resolveSnippet(st, snippetID)
	if err != nil {
		return nil, err
	}
	if t.local() {
		return nil, nil
	}
	return s.detector.Check(ctx, snippet)
}

// ResolveConflict applies the user's choice. When there is no longer a
// conflict the snippet is returned unchanged.
func (s *Service) ResolveConflict(ctx context.Context, req *storySvc.ResolveConflictRequest) (*models.Snippet, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SnippetID, validation.Required),
		validation.Field(&req.Resolution, validation.Required, validation.In(models.ResolveKeepLocal, models.ResolveAcceptRemote)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	current, t, err := s.resolveSnippet(st, req.SnippetID)
	if err != nil {
		return nil, err
	}
	if t.local() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("snippet %s has no remote copy", req.SnippetID)}
	}
	c, err := s.detector.Check(ctx, current)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return current, nil
	}

	var resolved *models.Snippet
	if req.Resolution == models.ResolveKeepLocal {
		resolved, err = s.detector.KeepLocal(ctx, current)
		if err != nil {
			return nil, err
		}
	} else {
		resolved = s.detector.AcceptRemote(current, c)
	}
	resolved.UpdatedAt = later(resolved.UpdatedAt, current.UpdatedAt)

	p := &models.Payload{Snippets: []models.Snippet{*resolved}}
	preview := st.With(p)
	if _, err := s.remote.WriteDataJSON(ctx, t.story.DriveFileID, remote.BuildDataDocument(preview, t.story.ID)); err != nil {
		return nil, err
	}

	next := s.store.UpsertEntities(p)
	saved := next.Snippets[resolved.ID]
	s.mirror.MirrorSnippetWrite(t.story.ID, saved)
	return saved, nil
}
