package store

import (
	"slices"
	"sort"

	models "yarny/internal/domain/models/story"
)

// placeholderTitles are assigned before the user names a story. A background
// metadata refresh carrying one of them never replaces a real title.
var placeholderTitles = map[string]struct{}{
	"New Project":    {},
	"Untitled Story": {},
}

// IsPlaceholderTitle reports whether title is a default creation-time title.
func IsPlaceholderTitle(title string) bool {
	_, ok := placeholderTitles[title]
	return ok
}

// IsIncomingNewerOrEqual decides whether an incoming version replaces the
// existing one. A missing incoming stamp never wins, a missing existing
// stamp always loses, and ties go to the incoming version. An incoming stamp
// that fails to parse never wins; an existing one that fails to parse counts
// as missing.
func IsIncomingNewerOrEqual(existing, incoming string) bool {
	if incoming == "" {
		return false
	}
	if existing == "" {
		return true
	}
	in, err := models.ParseTimestamp(incoming)
	if err != nil {
		return false
	}
	ex, err := models.ParseTimestamp(existing)
	if err != nil {
		return true
	}
	return in.UnixMilli() >= ex.UnixMilli()
}

// touchedSet records parents whose ordered-id arrays need normalizing once
// the whole payload has been applied.
type touchedSet struct {
	ids  []string
	seen map[string]struct{}
}

func (t *touchedSet) add(id string) {
	if id == "" {
		return
	}
	if t.seen == nil {
		t.seen = map[string]struct{}{}
	}
	if _, ok := t.seen[id]; ok {
		return
	}
	t.seen[id] = struct{}{}
	t.ids = append(t.ids, id)
}

func upsertEntities(base *State, p *models.Payload) *State {
	d := newDraft(base)
	var projects, stories, chapters touchedSet

	for _, incoming := range p.Projects {
		if incoming.ID == "" {
			continue
		}
		existing, ok := d.next.Projects[incoming.ID]
		if ok && !IsIncomingNewerOrEqual(existing.UpdatedAt, incoming.UpdatedAt) {
			continue
		}
		project := incoming.Clone()
		if ok && existing.StorageType != "" {
			project.StorageType = existing.StorageType
		}
		d.putProject(&project)
		d.appendProjectOrder(project.ID)
		projects.add(project.ID)
	}

	for _, incoming := range p.Stories {
		if incoming.ID == "" {
			continue
		}
		existing, ok := d.next.Stories[incoming.ID]
		if ok && !IsIncomingNewerOrEqual(existing.UpdatedAt, incoming.UpdatedAt) {
			continue
		}
		story := incoming.Clone()
		if ok && existing.Title != "" && existing.Title != story.Title && IsPlaceholderTitle(story.Title) {
			story.Title = existing.Title
		}
		d.putStory(&story)
		d.appendStoryOrder(story.ID)
		if ok && existing.ProjectID != story.ProjectID {
			detachID(d, kindProject, existing.ProjectID, story.ID)
			projects.add(existing.ProjectID)
		}
		attachID(d, kindProject, story.ProjectID, story.ID)
		projects.add(story.ProjectID)
		stories.add(story.ID)
	}

	for _, incoming := range p.Chapters {
		if incoming.ID == "" {
			continue
		}
		existing, ok := d.next.Chapters[incoming.ID]
		if ok && !IsIncomingNewerOrEqual(existing.UpdatedAt, incoming.UpdatedAt) {
			continue
		}
		chapter := incoming.Clone()
		d.putChapter(&chapter)
		if ok && existing.StoryID != chapter.StoryID {
			detachID(d, kindStory, existing.StoryID, chapter.ID)
			stories.add(existing.StoryID)
		}
		attachID(d, kindStory, chapter.StoryID, chapter.ID)
		stories.add(chapter.StoryID)
		chapters.add(chapter.ID)
	}

	for _, incoming := range p.Snippets {
		if incoming.ID == "" {
			continue
		}
		existing, ok := d.next.Snippets[incoming.ID]
		if ok && !IsIncomingNewerOrEqual(existing.UpdatedAt, incoming.UpdatedAt) {
			continue
		}
		snippet := incoming
		d.putSnippet(&snippet)
		if ok && existing.ChapterID != snippet.ChapterID {
			detachID(d, kindChapter, existing.ChapterID, snippet.ID)
			chapters.add(existing.ChapterID)
		}
		attachID(d, kindChapter, snippet.ChapterID, snippet.ID)
		chapters.add(snippet.ChapterID)
	}

	for _, incoming := range p.Notes {
		if incoming.ID == "" {
			continue
		}
		existing, ok := d.next.Notes[incoming.ID]
		if ok && !IsIncomingNewerOrEqual(existing.UpdatedAt, incoming.UpdatedAt) {
			continue
		}
		note := incoming
		d.putNote(&note)
		d.appendNoteOrder(note.ID)
	}

	for _, id := range projects.ids {
		normalizeProject(d, id)
	}
	for _, id := range stories.ids {
		normalizeStory(d, id)
	}
	for _, id := range chapters.ids {
		normalizeChapter(d, id)
	}

	return d.finish()
}

type parentKind int

const (
	kindProject parentKind = iota
	kindStory
	kindChapter
)

// attachID appends childID to the parent's ordered-id array if the parent
// exists and does not list it yet.
func attachID(d *draft, kind parentKind, parentID, childID string) {
	switch kind {
	case kindProject:
		if project, ok := d.next.Projects[parentID]; ok && !slices.Contains(project.StoryIDs, childID) {
			next := project.Clone()
			next.StoryIDs = append(next.StoryIDs, childID)
			d.putProject(&next)
		}
	case kindStory:
		if story, ok := d.next.Stories[parentID]; ok && !slices.Contains(story.ChapterIDs, childID) {
			next := story.Clone()
			next.ChapterIDs = append(next.ChapterIDs, childID)
			d.putStory(&next)
		}
	case kindChapter:
		if chapter, ok := d.next.Chapters[parentID]; ok && !slices.Contains(chapter.SnippetIDs, childID) {
			next := chapter.Clone()
			next.SnippetIDs = append(next.SnippetIDs, childID)
			d.putChapter(&next)
		}
	}
}

// detachID removes childID from the parent's ordered-id array.
func detachID(d *draft, kind parentKind, parentID, childID string) {
	switch kind {
	case kindProject:
		if project, ok := d.next.Projects[parentID]; ok && slices.Contains(project.StoryIDs, childID) {
			next := project.Clone()
			next.StoryIDs = without(next.StoryIDs, childID)
			d.putProject(&next)
		}
	case kindStory:
		if story, ok := d.next.Stories[parentID]; ok && slices.Contains(story.ChapterIDs, childID) {
			next := story.Clone()
			next.ChapterIDs = without(next.ChapterIDs, childID)
			d.putStory(&next)
		}
	case kindChapter:
		if chapter, ok := d.next.Chapters[parentID]; ok && slices.Contains(chapter.SnippetIDs, childID) {
			next := chapter.Clone()
			next.SnippetIDs = without(next.SnippetIDs, childID)
			d.putChapter(&next)
		}
	}
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(candidate string) bool { return candidate == id })
}

// liveIDs drops duplicates and ids that do not resolve to an entity.
func liveIDs(ids []string, exists func(string) bool) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || !exists(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeProject(d *draft, id string) {
	project, ok := d.next.Projects[id]
	if !ok {
		return
	}
	ids := liveIDs(project.StoryIDs, func(storyID string) bool {
		_, ok := d.next.Stories[storyID]
		return ok
	})
	if slices.Equal(ids, project.StoryIDs) {
		return
	}
	next := *project
	next.StoryIDs = ids
	d.putProject(&next)
}

func normalizeStory(d *draft, id string) {
	story, ok := d.next.Stories[id]
	if !ok {
		return
	}
	ids := liveIDs(story.ChapterIDs, func(chapterID string) bool {
		_, ok := d.next.Chapters[chapterID]
		return ok
	})
	sort.SliceStable(ids, func(i, j int) bool {
		return d.next.Chapters[ids[i]].Order < d.next.Chapters[ids[j]].Order
	})
	if slices.Equal(ids, story.ChapterIDs) {
		return
	}
	next := *story
	next.ChapterIDs = ids
	d.putStory(&next)
}

func normalizeChapter(d *draft, id string) {
	chapter, ok := d.next.Chapters[id]
	if !ok {
		return
	}
	ids := liveIDs(chapter.SnippetIDs, func(snippetID string) bool {
		_, ok := d.next.Snippets[snippetID]
		return ok
	})
	sort.SliceStable(ids, func(i, j int) bool {
		return d.next.Snippets[ids[i]].Order < d.next.Snippets[ids[j]].Order
	})
	if slices.Equal(ids, chapter.SnippetIDs) {
		return
	}
	next := *chapter
	next.SnippetIDs = ids
	d.putChapter(&next)
}
