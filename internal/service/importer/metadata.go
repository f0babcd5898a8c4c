package importer

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-billy/v5/util"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
)

// StoryMetadata builds the yarny-story.json content for a story.
func StoryMetadata(story *models.Story, chapters []models.Chapter) models.LocalStoryMetadata {
	meta := models.LocalStoryMetadata{
		ID:        story.ID,
		ProjectID: story.ProjectID,
		Title:     story.Title,
		Chapters:  make([]models.LocalChapterMetadata, 0, len(chapters)),
		UpdatedAt: story.UpdatedAt,
	}
	for _, c := range chapters {
		ids := c.SnippetIDs
		if ids == nil {
			ids = []string{}
		}
		meta.Chapters = append(meta.Chapters, models.LocalChapterMetadata{
			ID:         c.ID,
			Title:      c.Title,
			Order:      c.Order,
			SnippetIDs: ids,
			Color:      c.Color,
		})
	}
	return meta
}

// ProjectMetadata builds the yarny-project.json content for a project.
func ProjectMetadata(project *models.Project) models.LocalProjectMetadata {
	return models.LocalProjectMetadata{
		ID:          project.ID,
		Name:        project.Name,
		StorageType: models.StorageLocal,
		StoryIDs:    project.StoryIDs,
		UpdatedAt:   project.UpdatedAt,
	}
}

// WriteJSON writes v as indented JSON to rel inside the handle.
func WriteJSON(h *localfs.Handle, rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	if err := util.WriteFile(h.FS, rel, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// writeMetadata refreshes the metadata caches. They only speed up later
// loads, so a failed write is logged and the import still succeeds.
func (im *Importer) writeMetadata(h *localfs.Handle, project *models.Project, story *models.Story, chapters []models.Chapter) {
	if err := WriteJSON(h, models.LocalProjectFile, ProjectMetadata(project)); err != nil {
		im.logger.Warn("project metadata not written",
			"project_id", project.ID,
			"error", err,
		)
	}
	if err := WriteJSON(h, models.LocalStoryFile, StoryMetadata(story, chapters)); err != nil {
		im.logger.Warn("story metadata not written",
			"story_id", story.ID,
			"error", err,
		)
	}
}

// readJSON decodes rel into v. Missing files report found=false without an
// error. Read failures report found=false with the error; decode failures
// report found=true.
func readJSON(h *localfs.Handle, rel string, v any) (found bool, err error) {
	data, err := util.ReadFile(h.FS, rel)
	if err != nil {
		if localfs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", rel, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", rel, err)
	}
	return true, nil
}
