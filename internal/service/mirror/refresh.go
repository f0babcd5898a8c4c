package mirror

import (
	"context"
	"fmt"
	"strings"

	models "yarny/internal/domain/models/story"
	"yarny/internal/service/paths"
	"yarny/internal/service/remote"
	"yarny/internal/store"
	"yarny/internal/utils"
)

// StoryMetadata is the content of metadata/metadata.json.
type StoryMetadata struct {
	ID           string   `json:"id"`
	ProjectID    string   `json:"projectId"`
	Title        string   `json:"title"`
	ChapterIDs   []string `json:"chapterIds"`
	SnippetCount int      `json:"snippetCount"`
	WordCount    int      `json:"wordCount"`
	UpdatedAt    string   `json:"updatedAt"`
}

// Index is the content of index/index.json.
type Index struct {
	Stories   []IndexEntry `json:"stories"`
	UpdatedAt string       `json:"updatedAt"`
}

// IndexEntry locates one mirrored story.
type IndexEntry struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Path      string `json:"path"`
	UpdatedAt string `json:"updatedAt"`
}

// RefreshResult reports a refresh-all run. Message is meant for display.
type RefreshResult struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Stories int    `json:"stories"`
	Message string `json:"message"`
}

// BuildStoryMetadata summarizes a story for metadata.json.
func BuildStoryMetadata(st *store.State, storyID string) *StoryMetadata {
	meta := &StoryMetadata{ID: storyID, ChapterIDs: []string{}}
	story, ok := st.Stories[storyID]
	if !ok {
		return meta
	}
	meta.ProjectID = story.ProjectID
	meta.Title = story.Title
	meta.UpdatedAt = story.UpdatedAt
	for _, chapter := range st.ChaptersOf(storyID) {
		meta.ChapterIDs = append(meta.ChapterIDs, chapter.ID)
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			meta.SnippetCount++
			meta.WordCount += utils.CountWords(snippet.Content)
		}
	}
	return meta
}

// ComposeStoryDocument concatenates a story into one plain-text document:
// the story title, then each chapter title followed by its snippets.
func ComposeStoryDocument(st *store.State, storyID string) string {
	story, ok := st.Stories[storyID]
	if !ok {
		return ""
	}
	var blocks []string
	if story.Title != "" {
		blocks = append(blocks, story.Title)
	}
	for _, chapter := range st.ChaptersOf(storyID) {
		if chapter.Title != "" {
			blocks = append(blocks, chapter.Title)
		}
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			if text := strings.TrimSpace(snippet.Content); text != "" {
				blocks = append(blocks, text)
			}
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// refreshStep is one write of a story's rebuild.
type refreshStep struct {
	name  string
	write func(*Repository) error
}

func storySteps(st *store.State, story *models.Story) []refreshStep {
	id := story.ID
	steps := []refreshStep{
		{"ensure structure", func(r *Repository) error { return r.EnsureStoryStructure(id) }},
		{"project.json", func(r *Repository) error {
			return r.WriteMetadataJSON(id, paths.MetadataProject, remote.BuildProjectDocument(st, id, nil))
		}},
		{"data.json", func(r *Repository) error {
			return r.WriteMetadataJSON(id, paths.MetadataData, remote.BuildDataDocument(st, id))
		}},
		{"metadata.json", func(r *Repository) error {
			return r.WriteMetadataJSON(id, paths.MetadataStory, BuildStoryMetadata(st, id))
		}},
		{"story.md", func(r *Repository) error {
			return r.WriteStoryDocument(id, ComposeStoryDocument(st, id))
		}},
	}
	for _, chapter := range st.ChaptersOf(id) {
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			steps = append(steps, refreshStep{"snippet " + snippet.ID, func(r *Repository) error {
				return r.WriteSnippet(id, snippet)
			}})
		}
	}

	byKind := map[models.NoteKind][]string{}
	var kinds []models.NoteKind
	for _, note := range st.NotesOf(id, "") {
		if _, seen := byKind[note.Kind]; !seen {
			kinds = append(kinds, note.Kind)
		}
		byKind[note.Kind] = append(byKind[note.Kind], note.ID)
		steps = append(steps, refreshStep{"note " + note.ID, func(r *Repository) error {
			return r.WriteNote(note)
		}})
	}
	for _, kind := range kinds {
		ids := byKind[kind]
		steps = append(steps, refreshStep{"note order " + string(kind), func(r *Repository) error {
			return r.WriteNoteOrder(id, kind, ids)
		}})
	}
	return steps
}

// RefreshAll rebuilds the whole mirror from a store snapshot, story by
// story. It stops at the first failed step and reports which story and step
// failed in the result message.
func (o *Orchestrator) RefreshAll(ctx context.Context, st *store.State) RefreshResult {
	repo, ok := o.active()
	if !ok {
		return RefreshResult{Skipped: true, Message: "Mirroring is disabled"}
	}

	index := &Index{Stories: []IndexEntry{}, UpdatedAt: models.Timestamp(o.now())}
	done := 0
	for _, storyID := range st.StoryOrder {
		story, ok := st.Stories[storyID]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return o.refreshFailed(done, fmt.Sprintf("Mirror refresh canceled after %d stories", done), err)
		}
		for _, step := range storySteps(st, story) {
			if err := o.guard(func() error { return step.write(repo) }); err != nil {
				msg := fmt.Sprintf("Mirror refresh failed for story %q at %s: %s", storyLabel(story), step.name, describe(err))
				return o.refreshFailed(done, msg, err)
			}
		}
		o.markEnsured(repo, storyID)
		index.Stories = append(index.Stories, IndexEntry{
			ID:        story.ID,
			ProjectID: story.ProjectID,
			Title:     story.Title,
			Path:      paths.StoryRoot(story.ID),
			UpdatedAt: story.UpdatedAt,
		})
		done++
	}

	if err := o.guard(func() error { return repo.WriteIndex(index) }); err != nil {
		return o.refreshFailed(done, fmt.Sprintf("Mirror refresh failed writing the index: %s", describe(err)), err)
	}

	o.recordSuccess()
	o.logger.Info("mirror refreshed", "stories", done)
	return RefreshResult{Success: true, Stories: done, Message: fmt.Sprintf("Mirrored %d stories", done)}
}

func (o *Orchestrator) refreshFailed(done int, msg string, err error) RefreshResult {
	o.recordFailure(err, msg)
	o.logger.Warn("mirror refresh stopped",
		"stories_done", done,
		"error", msg,
	)
	return RefreshResult{Stories: done, Message: msg}
}

func (o *Orchestrator) markEnsured(repo *Repository, storyID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.repo == repo {
		o.ensured[storyID] = true
	}
}

func storyLabel(story *models.Story) string {
	if story.Title != "" {
		return story.Title
	}
	return story.ID
}
