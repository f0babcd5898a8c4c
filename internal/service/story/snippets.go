package story

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"yarny/internal/config"
	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/service/remote"
	"yarny/internal/store"
	"yarny/internal/utils"
)

// CreateSnippet appends a snippet to a chapter.
func (s *Service) CreateSnippet(ctx context.Context, req *storySvc.CreateSnippetRequest) (*models.Snippet, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ChapterID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.Content, validation.Length(0, config.MaxSnippetContentLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	chapter, t, err := s.resolveChapter(st, req.ChapterID)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	position := len(chapter.SnippetIDs)
	snippet := models.Snippet{
		StoryID:   chapter.StoryID,
		ChapterID: chapter.ID,
		Order:     position,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		UpdatedAt: now,
	}

	if t.local() {
		snippet.ID = uniqueLocalSnippetID(t, st, chapter.ID, position, snippet.Title)
		if snippet.Title == "" {
			snippet.Title = snippet.ID
		}
		if err := s.writeLocalSnippet(t, &snippet); err != nil {
			return nil, err
		}
	} else {
		snippet.ID = utils.NewID("snp")
		res, err := s.remote.WriteSnippetDocument(ctx, remoteParent(t, chapter), &snippet)
		if err != nil {
			return nil, err
		}
		snippet.DriveFileID = res.ID
		s.detector.RecordSave(snippet.ID, res.ModifiedTime)
	}

	parent := chapter.Clone()
	parent.SnippetIDs = append(parent.SnippetIDs, snippet.ID)
	parent.UpdatedAt = later(now, chapter.UpdatedAt)
	p := &models.Payload{Chapters: []models.Chapter{parent}, Snippets: []models.Snippet{snippet}}
	preview := st.With(p)

	if t.local() {
		if err := s.writeLocalStoryMetadata(t, preview); err != nil {
			return nil, err
		}
	} else if _, err := s.remote.WriteDataJSON(ctx, t.story.DriveFileID, remote.BuildDataDocument(preview, t.story.ID)); err != nil {
		return nil, err
	}

	next := s.store.UpsertEntities(p)
	created := next.Snippets[snippet.ID]
	s.mirror.MirrorSnippetWrite(t.story.ID, created)
	s.mirror.MirrorDataJSONWrite(t.story.ID, remote.BuildDataDocument(next, t.story.ID))
	s.logger.Info("snippet created",
		"story_id", t.story.ID,
		"chapter_id", chapter.ID,
		"snippet_id", snippet.ID,
	)
	return created, nil
}

// SaveSnippet replaces a snippet's content. Saving the same content twice
// is harmless.
func (s *Service) SaveSnippet(ctx context.Context, req *storySvc.SaveSnippetRequest) (*models.Snippet, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SnippetID, validation.Required),
		validation.Field(&req.Content, validation.Length(0, config.MaxSnippetContentLength)),
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(0, config.MaxTitleLength)),
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

	updated := *current
	updated.Content = req.Content
	if req.Title != nil {
		updated.Title = strings.TrimSpace(*req.Title)
	}
	updated.UpdatedAt = later(s.stamp(), current.UpdatedAt)

	if t.local() {
		if err := s.writeLocalSnippet(t, &updated); err != nil {
			return nil, err
		}
	} else {
		chapter := st.Chapters[current.ChapterID]
		res, err := s.remote.WriteSnippetDocument(ctx, remoteParent(t, chapter), &updated)
		if err != nil {
			return nil, err
		}
		updated.DriveFileID = res.ID
		preview := st.With(&models.Payload{Snippets: []models.Snippet{updated}})
		if _, err := s.remote.WriteDataJSON(ctx, t.story.DriveFileID, remote.BuildDataDocument(preview, t.story.ID)); err != nil {
			return nil, err
		}
		s.detector.RecordSave(updated.ID, res.ModifiedTime)
	}

	next := s.store.UpsertEntities(&models.Payload{Snippets: []models.Snippet{updated}})
	saved := next.Snippets[updated.ID]
	s.mirror.MirrorSnippetWrite(t.story.ID, saved)
	s.mirror.MirrorDataJSONWrite(t.story.ID, remote.BuildDataDocument(next, t.story.ID))
	s.logger.Debug("snippet saved",
		"story_id", t.story.ID,
		"snippet_id", saved.ID,
		"bytes", len(saved.Content),
	)
	return saved, nil
}

// DeleteSnippet removes a snippet and renumbers the rest of its chapter.
func (s *Service) DeleteSnippet(ctx context.Context, snippetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	snippet, t, err := s.resolveSnippet(st, snippetID)
	if err != nil {
		return err
	}
	without := st.WithoutSnippet(snippetID)
	renumber := reindexSnippets(without, snippet.ChapterID, s.stamp())
	preview := without.With(renumber)

	if t.local() {
		if err := s.removeLocalSnippet(t, snippet); err != nil {
			return err
		}
		if err := s.writeLocalStoryMetadata(t, preview); err != nil {
			return err
		}
	} else {
		if snippet.DriveFileID != "" {
			if err := s.remote.Files().DeleteFile(ctx, snippet.DriveFileID); err != nil && !isNotFound(err) {
				return fmt.Errorf("delete snippet document: %w", err)
			}
		}
		if _, err := s.remote.WriteDataJSON(ctx, t.story.DriveFileID, remote.BuildDataDocument(preview, t.story.ID)); err != nil {
			return err
		}
	}

	next := s.store.RemoveSnippetAndUpsert(snippetID, renumber)
	s.detector.Forget(snippetID)
	s.mirror.MirrorSnippetDelete(t.story.ID, snippetID)
	s.mirror.MirrorDataJSONWrite(t.story.ID, remote.BuildDataDocument(next, t.story.ID))
	s.logger.Info("snippet deleted",
		"story_id", t.story.ID,
		"snippet_id", snippetID,
	)
	return nil
}

// reindexSnippets returns the payload that makes the chapter's snippet
// orders contiguous again.
func reindexSnippets(st *store.State, chapterID, now string) *models.Payload {
	p := &models.Payload{}
	for i, snippet := range st.SnippetsOf(chapterID) {
		if snippet.Order == i {
			continue
		}
		next := *snippet
		next.Order = i
		next.UpdatedAt = later(now, snippet.UpdatedAt)
		p.Snippets = append(p.Snippets, next)
	}
	return p
}

// remoteParent is the folder a snippet's document lives in: its chapter
// folder, or the story folder for chapters created without one.
func remoteParent(t *target, chapter *models.Chapter) string {
	if chapter != nil && chapter.DriveFolderID != "" {
		return chapter.DriveFolderID
	}
	return t.story.DriveFileID
}

// later returns now, or existing when existing is further in the future.
func later(now, existing string) string {
	if store.IsIncomingNewerOrEqual(existing, now) {
		return now
	}
	return existing
}
