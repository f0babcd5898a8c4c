package remote

import (
	"context"
	"fmt"
	"sort"

	models "yarny/internal/domain/models/story"
	"yarny/internal/store"
)

// BuildDataDocument reconstructs data.json for a story from the store.
func BuildDataDocument(st *store.State, storyID string) *models.DataDocument {
	doc := &models.DataDocument{
		Groups:   map[string]models.DataGroup{},
		Snippets: map[string]models.DataSnippet{},
	}
	for _, chapter := range st.ChaptersOf(storyID) {
		ids := chapter.SnippetIDs
		if ids == nil {
			ids = []string{}
		}
		doc.Groups[chapter.ID] = models.DataGroup{
			ID:            chapter.ID,
			Title:         chapter.Title,
			Color:         chapter.Color,
			Position:      chapter.Order,
			SnippetIDs:    ids,
			DriveFolderID: chapter.DriveFolderID,
			UpdatedAt:     chapter.UpdatedAt,
		}
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			doc.Snippets[snippet.ID] = models.DataSnippet{
				ID:          snippet.ID,
				GroupID:     chapter.ID,
				Title:       snippet.Title,
				Body:        snippet.Content,
				Order:       snippet.Order,
				DriveFileID: snippet.DriveFileID,
				UpdatedAt:   snippet.UpdatedAt,
			}
		}
	}
	return doc
}

// BuildProjectDocument reconstructs project.json for a story from the store.
// Fields the store does not track (description, genre, word goal) are taken
// from previous when it is non-nil.
func BuildProjectDocument(st *store.State, storyID string, previous *models.ProjectDocument) *models.ProjectDocument {
	doc := &models.ProjectDocument{GroupIDs: []string{}}
	if previous != nil {
		doc.Description = previous.Description
		doc.Genre = previous.Genre
		doc.WordGoal = previous.WordGoal
	}
	story, ok := st.Stories[storyID]
	if !ok {
		return doc
	}
	doc.Name = story.Title
	doc.ProjectID = story.ProjectID
	doc.UpdatedAt = story.UpdatedAt
	if story.ChapterIDs != nil {
		doc.GroupIDs = story.ChapterIDs
	}
	return doc
}

// BuildNotesDocument reconstructs notes.json for a story from the store.
func BuildNotesDocument(st *store.State, storyID string) *models.NotesDocument {
	doc := &models.NotesDocument{Notes: map[string]models.DataNote{}}
	for _, note := range st.NotesOf(storyID, "") {
		doc.Notes[note.ID] = models.DataNote{
			ID:        note.ID,
			Kind:      note.Kind,
			Title:     note.Title,
			Body:      note.Content,
			Order:     note.Order,
			UpdatedAt: note.UpdatedAt,
		}
	}
	return doc
}

// NotesFromDocument converts notes.json into store notes, sorted by kind
// then order.
func NotesFromDocument(storyID string, doc *models.NotesDocument) []models.Note {
	notes := make([]models.Note, 0, len(doc.Notes))
	for id, n := range doc.Notes {
		if n.ID == "" {
			n.ID = id
		}
		notes = append(notes, models.Note{
			ID:        n.ID,
			StoryID:   storyID,
			Kind:      n.Kind,
			Order:     n.Order,
			Title:     n.Title,
			Content:   n.Body,
			UpdatedAt: n.UpdatedAt,
		})
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Kind != notes[j].Kind {
			return notes[i].Kind < notes[j].Kind
		}
		if notes[i].Order != notes[j].Order {
			return notes[i].Order < notes[j].Order
		}
		return notes[i].ID < notes[j].ID
	})
	return notes
}

// PayloadFromDocuments converts a story's remote documents into a store
// payload. project may be nil.
func PayloadFromDocuments(story models.Story, project *models.ProjectDocument, data *models.DataDocument) *models.Payload {
	if project != nil {
		if project.Name != "" {
			story.Title = project.Name
		}
		if project.ProjectID != "" {
			story.ProjectID = project.ProjectID
		}
		if project.UpdatedAt != "" {
			story.UpdatedAt = project.UpdatedAt
		}
	}

	groups := make([]models.DataGroup, 0, len(data.Groups))
	for id, g := range data.Groups {
		if g.ID == "" {
			g.ID = id
		}
		groups = append(groups, g)
	}
	position := map[string]int{}
	if project != nil {
		for i, id := range project.GroupIDs {
			position[id] = i
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		pi, iok := position[groups[i].ID]
		pj, jok := position[groups[j].ID]
		if iok && jok && pi != pj {
			return pi < pj
		}
		if iok != jok {
			return iok
		}
		if groups[i].Position != groups[j].Position {
			return groups[i].Position < groups[j].Position
		}
		return groups[i].ID < groups[j].ID
	})

	p := &models.Payload{}
	story.ChapterIDs = make([]string, 0, len(groups))
	for i, g := range groups {
		ids := g.SnippetIDs
		if ids == nil {
			ids = []string{}
		}
		p.Chapters = append(p.Chapters, models.Chapter{
			ID:            g.ID,
			StoryID:       story.ID,
			Title:         g.Title,
			Color:         g.Color,
			Order:         i,
			SnippetIDs:    ids,
			DriveFolderID: g.DriveFolderID,
			UpdatedAt:     g.UpdatedAt,
		})
		story.ChapterIDs = append(story.ChapterIDs, g.ID)
	}

	snippetIDs := make([]string, 0, len(data.Snippets))
	for id := range data.Snippets {
		snippetIDs = append(snippetIDs, id)
	}
	sort.Strings(snippetIDs)
	for _, id := range snippetIDs {
		s := data.Snippets[id]
		if s.ID == "" {
			s.ID = id
		}
		p.Snippets = append(p.Snippets, models.Snippet{
			ID:          s.ID,
			StoryID:     story.ID,
			ChapterID:   s.GroupID,
			Order:       s.Order,
			Title:       s.Title,
			Content:     s.Body,
			DriveFileID: s.DriveFileID,
			UpdatedAt:   s.UpdatedAt,
		})
	}

	p.Stories = []models.Story{story}
	return p
}

// LoadStory reads a story's remote documents and returns them as a payload.
func (h *Helpers) LoadStory(ctx context.Context, story models.Story) (*models.Payload, error) {
	if story.DriveFileID == "" {
		return nil, fmt.Errorf("story %s has no remote folder", story.ID)
	}
	project, err := h.ReadProjectJSON(ctx, story.DriveFileID)
	if err != nil {
		return nil, err
	}
	data, err := h.ReadDataJSON(ctx, story.DriveFileID)
	if err != nil {
		return nil, err
	}
	notes, err := h.ReadNotesJSON(ctx, story.DriveFileID)
	if err != nil {
		return nil, err
	}
	p := PayloadFromDocuments(story, project, data)
	p.Notes = NotesFromDocument(story.ID, notes)
	h.logger.Info("remote story loaded",
		"story_id", story.ID,
		"chapters", len(p.Chapters),
		"snippets", len(p.Snippets),
		"notes", len(p.Notes),
	)
	return p, nil
}
