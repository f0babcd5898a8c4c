package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		entity  string
		want    string
		wantErr bool
	}{
		{name: "story root", kind: KindStoryRoot, want: "stories/s1"},
		{name: "story document", kind: KindStoryDocument, want: "stories/s1/story.md"},
		{name: "data metadata", kind: KindMetadata, entity: "data", want: "stories/s1/metadata/data.json"},
		{name: "goal metadata", kind: KindMetadata, entity: "goal", want: "stories/s1/metadata/goal.json"},
		{name: "unknown metadata", kind: KindMetadata, entity: "secrets", wantErr: true},
		{name: "snippet", kind: KindSnippet, entity: "01-opening", want: "stories/s1/snippets/01-opening.md"},
		{name: "snippet without id", kind: KindSnippet, wantErr: true},
		{name: "note", kind: KindNote, entity: "characters/hero", want: "stories/s1/notes/characters/hero.md"},
		{name: "note without category", kind: KindNote, entity: "hero", wantErr: true},
		{name: "note order", kind: KindNoteOrder, entity: "places", want: "stories/s1/notes/places/_order.json"},
		{name: "attachment keeps extension", kind: KindAttachment, entity: "map.png", want: "stories/s1/attachments/map.png"},
		{name: "unknown kind", kind: Kind("chapter"), entity: "c1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve("s1", tt.kind, tt.entity)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RequiresStory(t *testing.T) {
	_, err := Resolve("", KindStoryRoot, "")
	assert.Error(t, err)
}

func TestIDsCannotEscapeTheirDirectory(t *testing.T) {
	assert.Equal(t, "stories/s1/snippets/..-..-etc.md", Snippet("s1", "../../etc"))
	assert.Equal(t, "stories/_", StoryRoot(".."))
	assert.Equal(t, "exports/a-b.txt", Export("a/b.txt"))
}

func TestGlobalPaths(t *testing.T) {
	assert.Equal(t, "index/index.json", Index())
	assert.Equal(t, "exports/book.txt", Export("book.txt"))
	assert.Equal(t, []string{
		"stories/s1",
		"stories/s1/metadata",
		"stories/s1/snippets",
		"stories/s1/notes",
		"stories/s1/attachments",
	}, StoryDirs("s1"))
}
