// Package outline renders the store as a text tree for the scan command and
// the debug endpoint.
package outline

import (
	"fmt"

	"github.com/disiqueira/gotree/v3"

	models "yarny/internal/domain/models/story"
	"yarny/internal/store"
	"yarny/internal/utils"
)

var noteKinds = []models.NoteKind{
	models.NotePeople,
	models.NotePlaces,
	models.NoteThings,
	models.NoteCharacters,
	models.NoteWorldbuilding,
}

// Render draws projects, stories, chapters and snippets in display order,
// followed by each story's notes grouped by kind.
func Render(st *store.State) string {
	root := gotree.New("yarny")
	for _, projectID := range st.ProjectOrder {
		project, ok := st.Projects[projectID]
		if !ok {
			continue
		}
		projectNode := root.Add(fmt.Sprintf("%s [%s]", project.Name, project.StorageType))
		for _, story := range st.StoriesOf(projectID) {
			addStory(projectNode, st, story)
		}
	}
	return root.Print()
}

func addStory(parent gotree.Tree, st *store.State, story *models.Story) {
	words := 0
	storyNode := parent.Add(story.Title)
	for _, chapter := range st.ChaptersOf(story.ID) {
		chapterNode := storyNode.Add(chapter.Title)
		for _, snippet := range st.SnippetsOf(chapter.ID) {
			n := utils.CountWords(snippet.Content)
			words += n
			chapterNode.Add(fmt.Sprintf("%s (%d words)", snippetLabel(snippet), n))
		}
	}
	for _, kind := range noteKinds {
		notes := st.NotesOf(story.ID, kind)
		if len(notes) == 0 {
			continue
		}
		kindNode := storyNode.Add(string(kind))
		for _, note := range notes {
			if note.Title != "" {
				kindNode.Add(note.Title)
			} else {
				kindNode.Add(note.ID)
			}
		}
	}
	storyNode.Add(fmt.Sprintf("total: %d words", words))
}

func snippetLabel(s *models.Snippet) string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}
