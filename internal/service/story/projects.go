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
)

const defaultStoryTitle = "Untitled Story"

// CreateProject creates the project folder, one story folder inside it, and
// the story's empty JSON of record. Folder ids double as entity ids so that
// rescanning the folder reproduces them.
func (s *Service) CreateProject(ctx context.Context, req *storySvc.CreateProjectRequest) (*models.Project, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.StoryTitle, validation.Length(0, config.MaxTitleLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	name := strings.TrimSpace(req.Name)
	title := strings.TrimSpace(req.StoryTitle)
	if title == "" {
		title = defaultStoryTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.remote.Files()
	projectFolder, err := files.CreateFolder(ctx, name, "")
	if err != nil {
		return nil, fmt.Errorf("create project folder: %w", err)
	}
	storyFolder, err := files.CreateFolder(ctx, title, projectFolder)
	if err != nil {
		return nil, fmt.Errorf("create story folder: %w", err)
	}

	now := s.stamp()
	p := &models.Payload{
		Projects: []models.Project{{
			ID:            projectFolder,
			Name:          name,
			DriveFolderID: projectFolder,
			StoryIDs:      []string{storyFolder},
			UpdatedAt:     now,
			StorageType:   models.StorageDrive,
		}},
		Stories: []models.Story{{
			ID:          storyFolder,
			ProjectID:   projectFolder,
			Title:       title,
			DriveFileID: storyFolder,
			ChapterIDs:  []string{},
			UpdatedAt:   now,
		}},
	}
	preview := s.store.Snapshot().With(p)
	projectDoc := remote.BuildProjectDocument(preview, storyFolder, nil)
	dataDoc := remote.BuildDataDocument(preview, storyFolder)
	if _, err := s.remote.WriteProjectJSON(ctx, storyFolder, projectDoc); err != nil {
		return nil, err
	}
	if _, err := s.remote.WriteDataJSON(ctx, storyFolder, dataDoc); err != nil {
		return nil, err
	}

	next := s.store.UpsertEntities(p)
	s.mirror.MirrorProjectJSONWrite(storyFolder, projectDoc)
	s.mirror.MirrorDataJSONWrite(storyFolder, dataDoc)

	s.logger.Info("project created",
		"project_id", projectFolder,
		"story_id", storyFolder,
	)
	return next.Projects[projectFolder], nil
}

// ScanRemoteProject treats every sub-folder of the project folder as a
// story and loads its JSON of record.
func (s *Service) ScanRemoteProject(ctx context.Context, folderID, name string) (*store.State, error) {
	if folderID == "" {
		return nil, &domain.ValidationError{Message: "project folder id is required"}
	}
	entries, err := s.remote.ListAll(ctx, folderID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Snapshot()
	if name == "" {
		if existing, ok := current.Projects[folderID]; ok {
			name = existing.Name
		}
	}
	project := models.Project{
		ID:            folderID,
		Name:          name,
		DriveFolderID: folderID,
		StoryIDs:      []string{},
		UpdatedAt:     s.stamp(),
		StorageType:   models.StorageDrive,
	}
	merged := &models.Payload{}
	for _, entry := range entries {
		if entry.MimeType != models.MimeFolder {
			continue
		}
		story := models.Story{
			ID:          entry.ID,
			ProjectID:   folderID,
			Title:       entry.Name,
			DriveFileID: entry.ID,
			UpdatedAt:   entry.ModifiedTime,
		}
		p, err := s.remote.LoadStory(ctx, story)
		if err != nil {
			return nil, err
		}
		project.StoryIDs = append(project.StoryIDs, story.ID)
		merged.Stories = append(merged.Stories, p.Stories...)
		merged.Chapters = append(merged.Chapters, p.Chapters...)
		merged.Snippets = append(merged.Snippets, p.Snippets...)
		merged.Notes = append(merged.Notes, p.Notes...)
	}
	merged.Projects = []models.Project{project}

	next := s.store.UpsertEntities(merged)
	s.logger.Info("remote project scanned",
		"project_id", folderID,
		"stories", len(project.StoryIDs),
	)
	return next, nil
}

// LoadRemoteStory re-reads a Drive-backed story's JSON of record into the
// store.
func (s *Service) LoadRemoteStory(ctx context.Context, storyID string) (*store.State, error) {
	story, ok := s.store.Snapshot().Stories[storyID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("story %s not found", storyID)}
	}
	p, err := s.remote.LoadStory(ctx, *story)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.store.UpsertEntities(p)
	s.mirror.MirrorDataJSONWrite(storyID, remote.BuildDataDocument(next, storyID))
	return next, nil
}
