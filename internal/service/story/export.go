package story

import (
	"context"
	"encoding/json"
	"fmt"

	"yarny/internal/domain"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/service/importer"
	"yarny/internal/service/mirror"
	"yarny/internal/service/paths"
	"yarny/internal/utils"
)

// ExportStory packs a story into a zip laid out like the mirror: the
// composed story.md, metadata.json, one file per snippet and one per note.
// The archive is also written to the mirror's exports when mirroring is on.
func (s *Service) ExportStory(ctx context.Context, storyID string) (*storySvc.StoryExport, error) {
	st := s.store.Snapshot()
	story, ok := st.Stories[storyID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("story %s not found", storyID)}
	}

	meta, err := json.MarshalIndent(mirror.BuildStoryMetadata(st, storyID), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	entries := []utils.ArchiveEntry{
		{Name: paths.StoryDocument(storyID), Data: []byte(mirror.ComposeStoryDocument(st, storyID))},
		{Name: paths.Metadata(storyID, paths.MetadataStory), Data: meta},
	}
	for _, chapter := range st.ChaptersOf(storyID) {
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			entries = append(entries, utils.ArchiveEntry{Name: paths.Snippet(storyID, snippet.ID), Data: []byte(snippet.Content)})
		}
	}
	for _, id := range st.NoteOrder {
		note, ok := st.Notes[id]
		if !ok || note.StoryID != storyID {
			continue
		}
		entries = append(entries, utils.ArchiveEntry{Name: paths.Note(storyID, string(note.Kind), note.ID), Data: []byte(note.Content)})
	}

	now := s.now().UTC()
	buf, err := utils.CreateZip(entries, now)
	if err != nil {
		return nil, err
	}

	base := importer.Slug(story.Title)
	if base == "" {
		base = "story"
	}
	export := &storySvc.StoryExport{
		Name: fmt.Sprintf("%s-%s.zip", base, now.Format("20060102-150405")),
		Data: buf.Bytes(),
	}
	export.Mirrored = s.mirror.MirrorExportWrite(export.Name, export.Data).Success

	s.logger.Info("story exported",
		"story_id", storyID,
		"name", export.Name,
		"files", len(entries),
		"mirrored", export.Mirrored,
	)
	return export, nil
}
