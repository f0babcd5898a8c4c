package store

import "slices"

// removeChapter deletes the chapter and its snippets, then scrubs any other
// chapter that still lists one of those snippet ids.
func removeChapter(base *State, chapterID string) *State {
	chapter, ok := base.Chapters[chapterID]
	if !ok {
		return base
	}
	d := newDraft(base)

	removed := make(map[string]struct{}, len(chapter.SnippetIDs))
	for _, id := range chapter.SnippetIDs {
		removed[id] = struct{}{}
	}
	for id, snippet := range base.Snippets {
		if snippet.ChapterID == chapterID {
			removed[id] = struct{}{}
		}
	}
	for id := range removed {
		if _, ok := d.next.Snippets[id]; ok {
			d.deleteSnippet(id)
		}
	}

	for id, other := range base.Chapters {
		if id == chapterID {
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(other.SnippetIDs), func(snippetID string) bool {
			_, gone := removed[snippetID]
			return gone
		})
		if len(kept) != len(other.SnippetIDs) {
			next := *other
			next.SnippetIDs = kept
			d.putChapter(&next)
		}
	}

	d.deleteChapter(chapterID)
	detachID(d, kindStory, chapter.StoryID, chapterID)

	if _, gone := removed[d.next.ActiveSnippetID]; gone {
		d.setSelection(d.next.ActiveProjectID, d.next.ActiveStoryID, "", d.next.ActiveNoteID)
	}
	return d.finish()
}

func removeSnippet(base *State, snippetID string) *State {
	snippet, ok := base.Snippets[snippetID]
	if !ok {
		return base
	}
	d := newDraft(base)
	d.deleteSnippet(snippetID)

	// The snippet's own chapter may be stale; then whichever chapter lists
	// the id gives it up.
	if chapter, ok := base.Chapters[snippet.ChapterID]; ok && slices.Contains(chapter.SnippetIDs, snippetID) {
		detachID(d, kindChapter, snippet.ChapterID, snippetID)
	} else {
		for id, chapter := range base.Chapters {
			if slices.Contains(chapter.SnippetIDs, snippetID) {
				detachID(d, kindChapter, id, snippetID)
			}
		}
	}

	if d.next.ActiveSnippetID == snippetID {
		d.setSelection(d.next.ActiveProjectID, d.next.ActiveStoryID, "", d.next.ActiveNoteID)
	}
	return d.finish()
}

func removeNote(base *State, noteID string) *State {
	if _, ok := base.Notes[noteID]; !ok {
		return base
	}
	d := newDraft(base)
	d.deleteNote(noteID)
	d.removeNoteOrder(noteID)
	if d.next.ActiveNoteID == noteID {
		d.setSelection(d.next.ActiveProjectID, d.next.ActiveStoryID, d.next.ActiveSnippetID, "")
	}
	return d.finish()
}

// selectProject switches the active project. Moving to another project
// drops the story, snippet and note selection that belonged to the old one.
func selectProject(base *State, projectID string) *State {
	if base.ActiveProjectID == projectID {
		return base
	}
	d := newDraft(base)
	d.setSelection(projectID, "", "", "")
	return d.finish()
}

// selectStory also activates the story's project when it is known, and
// always clears snippet and note focus.
func selectStory(base *State, storyID string) *State {
	projectID := base.ActiveProjectID
	if story, ok := base.Stories[storyID]; ok && story.ProjectID != "" {
		projectID = story.ProjectID
	}
	if base.ActiveProjectID == projectID && base.ActiveStoryID == storyID &&
		base.ActiveSnippetID == "" && base.ActiveNoteID == "" {
		return base
	}
	d := newDraft(base)
	d.setSelection(projectID, storyID, "", "")
	return d.finish()
}

func selectSnippet(base *State, snippetID string) *State {
	d := newDraft(base)
	d.setSelection(base.ActiveProjectID, base.ActiveStoryID, snippetID, "")
	return d.finish()
}

func selectNote(base *State, noteID string) *State {
	d := newDraft(base)
	d.setSelection(base.ActiveProjectID, base.ActiveStoryID, "", noteID)
	return d.finish()
}
