package importer

import (
	"context"
	"slices"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
)

// Load reopens a previously imported directory. Project and story identity,
// the story title, and chapter titles and colors come from the metadata
// caches; which chapters and snippets exist still comes from the folders.
// Without usable metadata it falls back to a full Import.
func (im *Importer) Load(ctx context.Context, h *localfs.Handle) (*models.Payload, error) {
	var pm models.LocalProjectMetadata
	var sm models.LocalStoryMetadata

	// Only missing or undecodable metadata triggers a re-import. A file that
	// exists but cannot be read fails the load.
	found, err := readJSON(h, models.LocalProjectFile, &pm)
	if err != nil && !found {
		return nil, err
	}
	if !found || err != nil || pm.ID == "" {
		im.logFallback(models.LocalProjectFile, found, err)
		return im.Import(ctx, h)
	}
	found, err = readJSON(h, models.LocalStoryFile, &sm)
	if err != nil && !found {
		return nil, err
	}
	if !found || err != nil || sm.ID == "" {
		im.logFallback(models.LocalStoryFile, found, err)
		return im.Import(ctx, h)
	}

	now := models.Timestamp(im.now())
	projectStamp := orNow(pm.UpdatedAt, now)
	storyStamp := orNow(sm.UpdatedAt, now)

	storyIDs := pm.StoryIDs
	if !slices.Contains(storyIDs, sm.ID) {
		storyIDs = append(slices.Clone(storyIDs), sm.ID)
	}
	name := pm.Name
	if name == "" {
		name = h.Name
	}
	project := models.Project{
		ID:          pm.ID,
		Name:        name,
		StoryIDs:    storyIDs,
		UpdatedAt:   projectStamp,
		StorageType: models.StorageLocal,
		LocalPath:   h.Path,
	}

	title := sm.Title
	if title == "" {
		readme, err := storyTitle(h)
		if err != nil {
			return nil, err
		}
		title = readme
	}
	if title == "" {
		title = name
	}
	story := models.Story{
		ID:         sm.ID,
		ProjectID:  pm.ID,
		Title:      title,
		ChapterIDs: []string{},
		UpdatedAt:  storyStamp,
	}

	matcher := im.ignoreMatcher(h)
	chapters, snippets, err := im.scanDrafts(ctx, h, story.ID, matcher)
	if err != nil {
		return nil, err
	}

	known := make(map[string]models.LocalChapterMetadata, len(sm.Chapters))
	for _, c := range sm.Chapters {
		known[c.ID] = c
	}
	for i := range chapters {
		if meta, ok := known[chapters[i].ID]; ok {
			if meta.Title != "" {
				chapters[i].Title = meta.Title
			}
			if meta.Color != "" {
				chapters[i].Color = meta.Color
			}
		}
		chapters[i].UpdatedAt = storyStamp
		story.ChapterIDs = append(story.ChapterIDs, chapters[i].ID)
	}

	notes, err := im.loadNotes(ctx, h, story.ID)
	if err != nil {
		return nil, err
	}

	im.logger.Info("local project loaded from metadata",
		"project_id", project.ID,
		"story_id", story.ID,
		"chapters", len(chapters),
		"snippets", len(snippets),
	)

	return &models.Payload{
		Projects: []models.Project{project},
		Stories:  []models.Story{story},
		Chapters: chapters,
		Snippets: snippets,
		Notes:    notes,
	}, nil
}

func (im *Importer) logFallback(file string, found bool, err error) {
	switch {
	case err != nil:
		im.logger.Warn("metadata unusable, re-importing", "file", file, "error", err)
	case !found:
		im.logger.Debug("no metadata, importing", "file", file)
	default:
		im.logger.Warn("metadata has no id, re-importing", "file", file)
	}
}

func orNow(stamp, now string) string {
	if _, err := models.ParseTimestamp(stamp); err != nil {
		return now
	}
	return stamp
}
