package outline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	models "yarny/internal/domain/models/story"
	"yarny/internal/store"
)

func TestRender(t *testing.T) {
	st := store.Empty().With(&models.Payload{
		Projects: []models.Project{{ID: "p1", Name: "Novel", StoryIDs: []string{"s1"}, StorageType: models.StorageLocal}},
		Stories:  []models.Story{{ID: "s1", ProjectID: "p1", Title: "Book One", ChapterIDs: []string{"c1", "c2"}}},
		Chapters: []models.Chapter{
			{ID: "c1", StoryID: "s1", Title: "Opening", Order: 0, SnippetIDs: []string{"n1"}},
			{ID: "c2", StoryID: "s1", Title: "Storm", Order: 1},
		},
		Snippets: []models.Snippet{{ID: "n1", StoryID: "s1", ChapterID: "c1", Title: "Dawn", Content: "It was dark."}},
		Notes:    []models.Note{{ID: "characters-ada", StoryID: "s1", Kind: models.NoteCharacters, Title: "Ada"}},
	})

	out := Render(st)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	assert.Equal(t, "yarny", lines[0])
	assert.Contains(t, out, "Novel [local]")
	assert.Contains(t, out, "Dawn (3 words)")
	assert.Contains(t, out, "total: 3 words")
	assert.Contains(t, out, "Ada")
	assert.Less(t, strings.Index(out, "Opening"), strings.Index(out, "Storm"))
	assert.Less(t, strings.Index(out, "Storm"), strings.Index(out, "characters"))
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "yarny", strings.TrimSpace(Render(store.Empty())))
}
