package ignore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Ignored(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{name: "directory pattern matches contents", pattern: "notes/", path: "notes/character.md", want: true},
		{name: "directory pattern skips other trees", pattern: "notes/", path: "drafts/chapter-1/file.md", want: false},
		{name: "double star crosses separators", pattern: "**/cache/", path: "drafts/chapter-1/cache/data.json", want: true},
		{name: "extension glob", pattern: "*.txt", path: "drafts/chapter-1/scratch.txt", want: true},
		{name: "extension glob anchored to end", pattern: "*.txt", path: "drafts/chapter-1/scratch.txt.md", want: false},
		{name: "star stays inside a segment", pattern: "drafts/*.md", path: "drafts/chapter-1/a.md", want: false},
		{name: "question mark is one character", pattern: "chapter-?", path: "drafts/chapter-7", want: true},
		{name: "question mark is not two", pattern: "chapter-?", path: "drafts/chapter-12", want: false},
		{name: "leading slash anchors at root", pattern: "/drafts/chapter-1", path: "old/drafts/chapter-1", want: false},
		{name: "leading slash matches root", pattern: "/drafts/chapter-1", path: "drafts/chapter-1", want: true},
		{name: "segment boundary only", pattern: "cache", path: "drafts/mycache", want: false},
		{name: "metacharacters are literal", pattern: "a+b.md", path: "drafts/a+b.md", want: true},
		{name: "backslashes normalized", pattern: "notes/", path: `notes\character.md`, want: true},
		{name: "non-ascii literal", pattern: "brouillé.md", path: "drafts/brouillé.md", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParsePatterns(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Ignored(tt.path))
		})
	}
}

func TestParsePatterns_SkipsCommentsAndBlanks(t *testing.T) {
	m, err := ParsePatterns("# scratch files\n\n*.txt\n   \n# drafts\n/archive/\n")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Ignored("archive/old.md"))
	assert.False(t, m.Ignored("# scratch files"))
}

func TestParse(t *testing.T) {
	t.Run("missing file ignores nothing", func(t *testing.T) {
		m, err := Parse(memfs.New())
		require.NoError(t, err)
		assert.Equal(t, 0, m.Len())
		assert.False(t, m.Ignored("anything"))
	})

	t.Run("reads root file", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, FileName, []byte("*.txt\n"), 0o644))
		m, err := Parse(fs)
		require.NoError(t, err)
		assert.True(t, m.Ignored("drafts/chapter-1/notes.txt"))
		assert.False(t, m.Ignored("drafts/chapter-1/01-opening.md"))
	})
}

func TestNilMatcherIgnoresNothing(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Ignored("drafts"))
	assert.False(t, Nothing().Ignored("drafts"))
}
