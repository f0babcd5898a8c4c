// Package store holds the normalized in-memory entity graph that every other
// component feeds. Each mutation produces a new *State; unchanged maps and
// entities are shared with the previous snapshot, so observers can detect
// changes with pointer comparisons.
package store

import (
	"sort"

	models "yarny/internal/domain/models/story"
)

// State is an immutable snapshot. Neither the maps nor the entities they
// point to may be modified after the snapshot is published.
type State struct {
	Projects map[string]*models.Project `json:"projects"`
	Stories  map[string]*models.Story   `json:"stories"`
	Chapters map[string]*models.Chapter `json:"chapters"`
	Snippets map[string]*models.Snippet `json:"snippets"`
	Notes    map[string]*models.Note    `json:"notes"`

	ProjectOrder []string `json:"projectOrder"`
	StoryOrder   []string `json:"storyOrder"`
	NoteOrder    []string `json:"noteOrder"`

	ActiveProjectID string `json:"activeProjectId,omitempty"`
	ActiveStoryID   string `json:"activeStoryId,omitempty"`
	ActiveSnippetID string `json:"activeSnippetId,omitempty"`
	ActiveNoteID    string `json:"activeNoteId,omitempty"`
}

// Empty returns the default state used at start-up and after Clear.
func Empty() *State {
	return &State{
		Projects:     map[string]*models.Project{},
		Stories:      map[string]*models.Story{},
		Chapters:     map[string]*models.Chapter{},
		Snippets:     map[string]*models.Snippet{},
		Notes:        map[string]*models.Note{},
		ProjectOrder: []string{},
		StoryOrder:   []string{},
		NoteOrder:    []string{},
	}
}

// StoriesOf returns the project's stories in the project's order.
func (s *State) StoriesOf(projectID string) []*models.Story {
	project, ok := s.Projects[projectID]
	if !ok {
		return nil
	}
	out := make([]*models.Story, 0, len(project.StoryIDs))
	for _, id := range project.StoryIDs {
		if story, ok := s.Stories[id]; ok {
			out = append(out, story)
		}
	}
	return out
}

// ChaptersOf returns the story's chapters in display order.
func (s *State) ChaptersOf(storyID string) []*models.Chapter {
	story, ok := s.Stories[storyID]
	if !ok {
		return nil
	}
	out := make([]*models.Chapter, 0, len(story.ChapterIDs))
	for _, id := range story.ChapterIDs {
		if chapter, ok := s.Chapters[id]; ok {
			out = append(out, chapter)
		}
	}
	return out
}

// SnippetsOf returns the chapter's snippets in display order.
func (s *State) SnippetsOf(chapterID string) []*models.Snippet {
	chapter, ok := s.Chapters[chapterID]
	if !ok {
		return nil
	}
	out := make([]*models.Snippet, 0, len(chapter.SnippetIDs))
	for _, id := range chapter.SnippetIDs {
		if snippet, ok := s.Snippets[id]; ok {
			out = append(out, snippet)
		}
	}
	return out
}

// NotesOf returns the story's notes of one kind sorted by Order. An empty
// kind returns every note of the story grouped by kind.
func (s *State) NotesOf(storyID string, kind models.NoteKind) []*models.Note {
	var out []*models.Note
	for _, id := range s.NoteOrder {
		note, ok := s.Notes[id]
		if !ok || note.StoryID != storyID {
			continue
		}
		if kind != "" && note.Kind != kind {
			continue
		}
		out = append(out, note)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// ProjectOfStory resolves the owning project through the story's back-reference.
func (s *State) ProjectOfStory(storyID string) (*models.Project, bool) {
	story, ok := s.Stories[storyID]
	if !ok {
		return nil, false
	}
	project, ok := s.Projects[story.ProjectID]
	return project, ok
}

// With returns the snapshot that UpsertEntities(p) would publish, without
// publishing it.
func (s *State) With(p *models.Payload) *State {
	if p == nil || p.Empty() {
		return s
	}
	return upsertEntities(s, p)
}

// WithoutChapter returns the snapshot that RemoveChapter would publish.
func (s *State) WithoutChapter(chapterID string) *State {
	return removeChapter(s, chapterID)
}

// WithoutSnippet returns the snapshot that RemoveSnippet would publish.
func (s *State) WithoutSnippet(snippetID string) *State {
	return removeSnippet(s, snippetID)
}

// WithoutNote returns the snapshot that RemoveNote would publish.
func (s *State) WithoutNote(noteID string) *State {
	return removeNote(s, noteID)
}
