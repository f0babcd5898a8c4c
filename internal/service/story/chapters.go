package story

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

const localChapterPrefix = "chapter-"

// CreateChapter appends a chapter. Drive chapters get a generated id and
// their own folder; local chapters are named chapter-<N> after the highest
// existing number.
func (s *Service) CreateChapter(ctx context.Context, req *storySvc.CreateChapterRequest) (*models.Chapter, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.StoryID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
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

	now := s.stamp()
	position := len(t.story.ChapterIDs)
	chapter := models.Chapter{
		StoryID:    t.story.ID,
		Title:      strings.TrimSpace(req.Title),
		Color:      config.ChapterPalette[position%len(config.ChapterPalette)],
		Order:      position,
		SnippetIDs: []string{},
		UpdatedAt:  now,
	}
	story := t.story.Clone()
	story.UpdatedAt = now

	if t.local() {
		n := nextChapterNumber(st.ChaptersOf(t.story.ID))
		chapter.ID = localChapterPrefix + strconv.Itoa(n)
		if chapter.Title == "" {
			chapter.Title = "Chapter " + strconv.Itoa(n)
		}
		story.ChapterIDs = append(story.ChapterIDs, chapter.ID)
		p := &models.Payload{Stories: []models.Story{story}, Chapters: []models.Chapter{chapter}}
		if err := s.createLocalChapter(t, chapter.ID); err != nil {
			return nil, err
		}
		if err := s.writeLocalStoryMetadata(t, st.With(p)); err != nil {
			return nil, err
		}
		return s.commitChapter(p, chapter.ID), nil
	}

	chapter.ID = utils.NewID("grp")
	if chapter.Title == "" {
		chapter.Title = "Chapter " + strconv.Itoa(position+1)
	}
	folderID, err := s.remote.Files().CreateFolder(ctx, chapter.Title, t.story.DriveFileID)
	if err != nil {
		return nil, fmt.Errorf("create chapter folder: %w", err)
	}
	chapter.DriveFolderID = folderID
	story.ChapterIDs = append(story.ChapterIDs, chapter.ID)
	p := &models.Payload{Stories: []models.Story{story}, Chapters: []models.Chapter{chapter}}
	if err := s.writeRemoteStructure(ctx, t, st.With(p)); err != nil {
		return nil, err
	}
	return s.commitChapter(p, chapter.ID), nil
}

func (s *Service) commitChapter(p *models.Payload, chapterID string) *models.Chapter {
	next := s.store.UpsertEntities(p)
	chapter := next.Chapters[chapterID]
	s.mirrorStructure(next, chapter.StoryID)
	s.logger.Info("chapter created",
		"story_id", chapter.StoryID,
		"chapter_id", chapter.ID,
	)
	return chapter
}

// DeleteChapter removes the chapter with its snippets and renumbers the
// chapters after it.
func (s *Service) DeleteChapter(ctx context.Context, chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Snapshot()
	chapter, t, err := s.resolveChapter(st, chapterID)
	if err != nil {
		return err
	}
	snippets := st.SnippetsOf(chapterID)
	without := st.WithoutChapter(chapterID)
	renumber := reindexChapters(without, t.story.ID, s.stamp())
	preview := without.With(renumber)

	if t.local() {
		if err := s.removeLocalChapter(t, chapterID); err != nil {
			return err
		}
		if err := s.writeLocalStoryMetadata(t, preview); err != nil {
			return err
		}
	} else {
		if chapter.DriveFolderID != "" {
			if err := s.remote.Files().DeleteFile(ctx, chapter.DriveFolderID); err != nil && !isNotFound(err) {
				return fmt.Errorf("delete chapter folder: %w", err)
			}
		}
		if err := s.writeRemoteStructure(ctx, t, preview); err != nil {
			return err
		}
	}

	next := s.store.RemoveChapterAndUpsert(chapterID, renumber)
	for _, snippet := range snippets {
		s.detector.Forget(snippet.ID)
		s.mirror.MirrorSnippetDelete(t.story.ID, snippet.ID)
	}
	s.mirrorStructure(next, t.story.ID)
	s.logger.Info("chapter deleted",
		"story_id", t.story.ID,
		"chapter_id", chapterID,
		"snippets", len(snippets),
	)
	return nil
}

// reindexChapters returns the payload that makes the story's chapter orders
// contiguous again.
func reindexChapters(st *store.State, storyID, now string) *models.Payload {
	p := &models.Payload{}
	for i, chapter := range st.ChaptersOf(storyID) {
		if chapter.Order == i {
			continue
		}
		next := chapter.Clone()
		next.Order = i
		next.UpdatedAt = now
		p.Chapters = append(p.Chapters, next)
	}
	return p
}

// nextChapterNumber returns one more than the highest chapter-<N> suffix.
func nextChapterNumber(chapters []*models.Chapter) int {
	highest := 0
	for _, c := range chapters {
		n, err := strconv.Atoi(strings.TrimPrefix(c.ID, localChapterPrefix))
		if err == nil && n > highest {
			highest = n
		}
	}
	if highest < len(chapters) {
		highest = len(chapters)
	}
	return highest + 1
}

// writeRemoteStructure rewrites data.json and project.json from the preview.
// Fields the store does not track are carried over from the current
// project.json.
func (s *Service) writeRemoteStructure(ctx context.Context, t *target, preview *store.State) error {
	folder := t.story.DriveFileID
	previous, err := s.remote.ReadProjectJSON(ctx, folder)
	if err != nil {
		return err
	}
	if _, err := s.remote.WriteDataJSON(ctx, folder, remote.BuildDataDocument(preview, t.story.ID)); err != nil {
		return err
	}
	if _, err := s.remote.WriteProjectJSON(ctx, folder, remote.BuildProjectDocument(preview, t.story.ID, previous)); err != nil {
		return err
	}
	return nil
}

// mirrorStructure copies the story's structure documents to the mirror.
func (s *Service) mirrorStructure(st *store.State, storyID string) {
	s.mirror.MirrorDataJSONWrite(storyID, remote.BuildDataDocument(st, storyID))
	s.mirror.MirrorProjectJSONWrite(storyID, remote.BuildProjectDocument(st, storyID, nil))
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
