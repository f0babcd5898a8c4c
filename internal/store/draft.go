package store

import (
	"maps"
	"slices"

	models "yarny/internal/domain/models/story"
)

// draft builds the next snapshot from a base snapshot. Maps and order slices
// are cloned the first time they are written; everything else is shared.
type draft struct {
	base    *State
	next    State
	changed bool

	projectsCloned bool
	storiesCloned  bool
	chaptersCloned bool
	snippetsCloned bool
	notesCloned    bool

	projectOrderCloned bool
	storyOrderCloned   bool
	noteOrderCloned    bool
}

func newDraft(base *State) *draft {
	return &draft{base: base, next: *base}
}

// finish returns the base itself when nothing was written, so reference
// equality keeps meaning "no change".
func (d *draft) finish() *State {
	if !d.changed {
		return d.base
	}
	next := d.next
	return &next
}

func (d *draft) putProject(p *models.Project) {
	if !d.projectsCloned {
		d.next.Projects = maps.Clone(d.next.Projects)
		d.projectsCloned = true
	}
	d.next.Projects[p.ID] = p
	d.changed = true
}

func (d *draft) putStory(s *models.Story) {
	if !d.storiesCloned {
		d.next.Stories = maps.Clone(d.next.Stories)
		d.storiesCloned = true
	}
	d.next.Stories[s.ID] = s
	d.changed = true
}

func (d *draft) putChapter(c *models.Chapter) {
	if !d.chaptersCloned {
		d.next.Chapters = maps.Clone(d.next.Chapters)
		d.chaptersCloned = true
	}
	d.next.Chapters[c.ID] = c
	d.changed = true
}

func (d *draft) putSnippet(s *models.Snippet) {
	if !d.snippetsCloned {
		d.next.Snippets = maps.Clone(d.next.Snippets)
		d.snippetsCloned = true
	}
	d.next.Snippets[s.ID] = s
	d.changed = true
}

func (d *draft) putNote(n *models.Note) {
	if !d.notesCloned {
		d.next.Notes = maps.Clone(d.next.Notes)
		d.notesCloned = true
	}
	d.next.Notes[n.ID] = n
	d.changed = true
}

func (d *draft) deleteChapter(id string) {
	if !d.chaptersCloned {
		d.next.Chapters = maps.Clone(d.next.Chapters)
		d.chaptersCloned = true
	}
	delete(d.next.Chapters, id)
	d.changed = true
}

func (d *draft) deleteSnippet(id string) {
	if !d.snippetsCloned {
		d.next.Snippets = maps.Clone(d.next.Snippets)
		d.snippetsCloned = true
	}
	delete(d.next.Snippets, id)
	d.changed = true
}

func (d *draft) deleteNote(id string) {
	if !d.notesCloned {
		d.next.Notes = maps.Clone(d.next.Notes)
		d.notesCloned = true
	}
	delete(d.next.Notes, id)
	d.changed = true
}

func (d *draft) appendProjectOrder(id string) {
	if slices.Contains(d.next.ProjectOrder, id) {
		return
	}
	if !d.projectOrderCloned {
		d.next.ProjectOrder = slices.Clone(d.next.ProjectOrder)
		d.projectOrderCloned = true
	}
	d.next.ProjectOrder = append(d.next.ProjectOrder, id)
	d.changed = true
}

func (d *draft) appendStoryOrder(id string) {
	if slices.Contains(d.next.StoryOrder, id) {
		return
	}
	if !d.storyOrderCloned {
		d.next.StoryOrder = slices.Clone(d.next.StoryOrder)
		d.storyOrderCloned = true
	}
	d.next.StoryOrder = append(d.next.StoryOrder, id)
	d.changed = true
}

func (d *draft) appendNoteOrder(id string) {
	if slices.Contains(d.next.NoteOrder, id) {
		return
	}
	if !d.noteOrderCloned {
		d.next.NoteOrder = slices.Clone(d.next.NoteOrder)
		d.noteOrderCloned = true
	}
	d.next.NoteOrder = append(d.next.NoteOrder, id)
	d.changed = true
}

func (d *draft) removeNoteOrder(id string) {
	idx := slices.Index(d.next.NoteOrder, id)
	if idx < 0 {
		return
	}
	d.next.NoteOrder = slices.Delete(slices.Clone(d.next.NoteOrder), idx, idx+1)
	d.noteOrderCloned = true
	d.changed = true
}

func (d *draft) setSelection(projectID, storyID, snippetID, noteID string) {
	if d.next.ActiveProjectID == projectID && d.next.ActiveStoryID == storyID &&
		d.next.ActiveSnippetID == snippetID && d.next.ActiveNoteID == noteID {
		return
	}
	d.next.ActiveProjectID = projectID
	d.next.ActiveStoryID = storyID
	d.next.ActiveSnippetID = snippetID
	d.next.ActiveNoteID = noteID
	d.changed = true
}
