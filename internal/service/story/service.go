// Package story performs story mutations. Every mutation follows the same
// order: write through the project's authoritative storage (remote JSON of
// record or local files), publish to the store only after that write
// succeeded, then mirror best-effort.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/localfs"
	"yarny/internal/service/conflict"
	"yarny/internal/service/importer"
	"yarny/internal/service/mirror"
	"yarny/internal/service/remote"
	"yarny/internal/store"
)

// Service implements StoryService.
type Service struct {
	store    *store.Store
	remote   *remote.Helpers
	mirror   *mirror.Orchestrator
	detector *conflict.Detector
	importer *importer.Importer
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes mutations so the preview a write is built from is
	// still current when it is published.
	mu sync.Mutex

	handlesMu sync.RWMutex
	handles   map[string]*localfs.Handle
}

var _ storySvc.StoryService = (*Service)(nil)

// NewService wires the story service.
func NewService(
	st *store.Store,
	helpers *remote.Helpers,
	orchestrator *mirror.Orchestrator,
	detector *conflict.Detector,
	imp *importer.Importer,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    st,
		remote:   helpers,
		mirror:   orchestrator,
		detector: detector,
		importer: imp,
		logger:   logger,
		now:      time.Now,
		handles:  map[string]*localfs.Handle{},
	}
}

// BindLocal records the granted directory backing a local project.
func (s *Service) BindLocal(projectID string, h *localfs.Handle) {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	s.handles[projectID] = h
}

func (s *Service) localHandle(projectID string) (*localfs.Handle, error) {
	s.handlesMu.RLock()
	defer s.handlesMu.RUnlock()
	h, ok := s.handles[projectID]
	if !ok {
		return nil, &domain.PermissionError{Message: fmt.Sprintf("directory for project %s is not granted", projectID)}
	}
	return h, nil
}

func (s *Service) stamp() string {
	return models.Timestamp(s.now())
}

// target is the story a mutation applies to, with its owning project.
type target struct {
	project *models.Project
	story   *models.Story
	handle  *localfs.Handle
}

func (t *target) local() bool {
	return t.project.StorageType == models.StorageLocal
}

func (s *Service) resolveStory(st *store.State, storyID string) (*target, error) {
	story, ok := st.Stories[storyID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("story %s not found", storyID)}
	}
	project, ok := st.Projects[story.ProjectID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s of story %s not found", story.ProjectID, storyID)}
	}
	t := &target{project: project, story: story}
	switch project.StorageType {
	case models.StorageLocal:
		h, err := s.localHandle(project.ID)
		if err != nil {
			return nil, err
		}
		t.handle = h
	case models.StorageDrive, "":
		if story.DriveFileID == "" {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("story %s has no remote folder", storyID)}
		}
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("project %s has unknown storage type %q", project.ID, project.StorageType)}
	}
	return t, nil
}

func (s *Service) resolveChapter(st *store.State, chapterID string) (*models.Chapter, *target, error) {
	chapter, ok := st.Chapters[chapterID]
	if !ok {
		return nil, nil, &domain.NotFoundError{Message: fmt.Sprintf("chapter %s not found", chapterID)}
	}
	t, err := s.resolveStory(st, chapter.StoryID)
	if err != nil {
		return nil, nil, err
	}
	return chapter, t, nil
}

func (s *Service) resolveSnippet(st *store.State, snippetID string) (*models.Snippet, *target, error) {
	snippet, ok := st.Snippets[snippetID]
	if !ok {
		return nil, nil, &domain.NotFoundError{Message: fmt.Sprintf("snippet %s not found", snippetID)}
	}
	t, err := s.resolveStory(st, snippet.StoryID)
	if err != nil {
		return nil, nil, err
	}
	return snippet, t, nil
}

// ImportLocal scans the directory, binds it to the imported project and
// publishes the result.
func (s *Service) ImportLocal(ctx context.Context, h *localfs.Handle) (*store.State, error) {
	p, err := s.importer.Import(ctx, h)
	if err != nil {
		return nil, err
	}
	return s.publishLocal(h, p), nil
}

// LoadLocal reads the directory through its metadata caches, falling back to
// a full scan.
func (s *Service) LoadLocal(ctx context.Context, h *localfs.Handle) (*store.State, error) {
	p, err := s.importer.Load(ctx, h)
	if err != nil {
		return nil, err
	}
	return s.publishLocal(h, p), nil
}

func (s *Service) publishLocal(h *localfs.Handle, p *models.Payload) *store.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, project := range p.Projects {
		s.BindLocal(project.ID, h)
	}
	next := s.store.UpsertEntities(p)
	if len(p.Projects) > 0 {
		next = s.store.SelectProject(p.Projects[0].ID)
	}
	return next
}
