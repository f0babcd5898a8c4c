package importer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yarny/internal/config"
	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestImporter() *Importer {
	im := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	im.now = func() time.Time { return fixedNow }
	return im
}

func newHandle(t *testing.T, name string, files map[string]string) *localfs.Handle {
	t.Helper()
	fs := memfs.New()
	for rel, content := range files {
		require.NoError(t, util.WriteFile(fs, rel, []byte(content), 0o644))
	}
	return localfs.New(name, fs)
}

func TestImport_SingleChapterScenario(t *testing.T) {
	h := newHandle(t, "my-novel", map[string]string{
		"drafts/chapter-1/01-opening.md": "The morning sun...",
	})

	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, p.Projects, 1)
	assert.Equal(t, "my-novel", p.Projects[0].Name)
	assert.Equal(t, models.StorageLocal, p.Projects[0].StorageType)

	require.Len(t, p.Stories, 1)
	assert.Equal(t, "my-novel", p.Stories[0].Title)
	assert.Equal(t, p.Projects[0].ID, p.Stories[0].ProjectID)
	assert.Equal(t, []string{p.Stories[0].ID}, p.Projects[0].StoryIDs)

	require.Len(t, p.Chapters, 1)
	assert.Equal(t, "chapter-1", p.Chapters[0].ID)
	assert.Equal(t, "Chapter 1", p.Chapters[0].Title)
	assert.Equal(t, []string{"01-opening"}, p.Chapters[0].SnippetIDs)

	require.Len(t, p.Snippets, 1)
	assert.Equal(t, "01-opening", p.Snippets[0].ID)
	assert.Equal(t, "chapter-1", p.Snippets[0].ChapterID)
	assert.Contains(t, p.Snippets[0].Content, "morning sun")
}

func TestImport_ReadmeTitle(t *testing.T) {
	h := newHandle(t, "my-novel", map[string]string{
		"README.md":                      "# My Awesome Novel\n\nDescription",
		"drafts/chapter-1/01-opening.md": "text",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "My Awesome Novel", p.Stories[0].Title)
}

func TestImport_ReadmeWithoutHeading(t *testing.T) {
	h := newHandle(t, "my-novel", map[string]string{
		"README.md":                      "no heading here",
		"drafts/chapter-1/01-opening.md": "text",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "my-novel", p.Stories[0].Title)
}

func TestImport_ChaptersSortNumerically(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "drafts/chapter-2/01.md", []byte("two"), 0o644))
	require.NoError(t, util.WriteFile(fs, "drafts/chapter-10/01.md", []byte("ten"), 0o644))
	require.NoError(t, util.WriteFile(fs, "drafts/chapter-1/01.md", []byte("one"), 0o644))

	p, err := newTestImporter().Import(context.Background(), localfs.New("book", fs))
	require.NoError(t, err)

	require.Len(t, p.Chapters, 3)
	assert.Equal(t, "Chapter 1", p.Chapters[0].Title)
	assert.Equal(t, 0, p.Chapters[0].Order)
	assert.Equal(t, "Chapter 2", p.Chapters[1].Title)
	assert.Equal(t, 1, p.Chapters[1].Order)
	assert.Equal(t, "Chapter 10", p.Chapters[2].Title)
	assert.Equal(t, []string{"chapter-1", "chapter-2", "chapter-10"}, p.Stories[0].ChapterIDs)
	assert.Equal(t, config.ChapterPalette[1], p.Chapters[1].Color)
}

func TestImport_NonNumericChapterSortsFirst(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-3/a.md":        "three",
		"drafts/chapter-prologue/a.md": "prologue",
		"drafts/notes/a.md":            "not a chapter",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, p.Chapters, 2)
	assert.Equal(t, "chapter-prologue", p.Chapters[0].ID)
	assert.Equal(t, "Chapter 1", p.Chapters[0].Title, "unparseable suffix falls back to position")
	assert.Equal(t, "chapter-3", p.Chapters[1].ID)
}

func TestImport_SnippetsSortLexically(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/10-end.md":       "end",
		"drafts/chapter-1/02-discovery.md": "middle",
		"drafts/chapter-1/01-opening.md":   "start",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, []string{"01-opening", "02-discovery", "10-end"}, p.Chapters[0].SnippetIDs)
	for i, s := range p.Snippets {
		assert.Equal(t, i, s.Order)
	}
}

func TestImport_IgnoreFile(t *testing.T) {
	t.Run("txt files", func(t *testing.T) {
		h := newHandle(t, "book", map[string]string{
			".yarnyignore":           "*.txt\n",
			"drafts/chapter-1/01.md": "kept",
			"drafts/chapter-1/02.txt": "dropped",
		})
		p, err := newTestImporter().Import(context.Background(), h)
		require.NoError(t, err)
		require.Len(t, p.Snippets, 1)
		assert.Equal(t, "01", p.Snippets[0].ID)
	})

	t.Run("markdown files and chapters", func(t *testing.T) {
		h := newHandle(t, "book", map[string]string{
			".yarnyignore":                "# scratch\ndrafts/chapter-1/02-*.md\nchapter-9/\n",
			"drafts/chapter-1/01-keep.md": "kept",
			"drafts/chapter-1/02-cut.md":  "dropped",
			"drafts/chapter-9/01.md":      "dropped",
		})
		p, err := newTestImporter().Import(context.Background(), h)
		require.NoError(t, err)
		require.Len(t, p.Chapters, 1)
		assert.Equal(t, []string{"01-keep"}, p.Chapters[0].SnippetIDs)
	})
}

func TestImport_NoDrafts(t *testing.T) {
	h := newHandle(t, "empty", map[string]string{"README.md": "# Ignored"})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, p.Projects, 1)
	require.Len(t, p.Stories, 1)
	assert.Empty(t, p.Chapters)
	assert.Empty(t, p.Snippets)
	assert.Empty(t, p.Stories[0].ChapterIDs)
}

func TestImport_FrontMatterAndMarkdown(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/01-opening.md": "---\ntitle: The Opening\n---\n# Dawn\n\nThe **morning** sun...",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, p.Snippets, 1)
	assert.Equal(t, "The Opening", p.Snippets[0].Title)
	assert.Equal(t, "Dawn\n\nThe morning sun...", p.Snippets[0].Content)
}

func TestImport_Notes(t *testing.T) {
	order, err := json.Marshal([]string{"villain", "hero"})
	require.NoError(t, err)
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/01.md":       "text",
		"Characters/hero.md":           "The hero",
		"Characters/villain.md":        "The villain",
		"Characters/sidekick.md":       "The sidekick",
		"Characters/_order.json":       string(order),
		"Worldbuilding/city.md":        "The city",
		"Worldbuilding/_order.json":    "{not json",
		"Worldbuilding/images/map.png": "binary",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	var characters, world []models.Note
	for _, n := range p.Notes {
		assert.Equal(t, p.Stories[0].ID, n.StoryID)
		switch n.Kind {
		case models.NoteCharacters:
			characters = append(characters, n)
		case models.NoteWorldbuilding:
			world = append(world, n)
		}
	}
	require.Len(t, characters, 3)
	assert.Equal(t, "characters-villain", characters[0].ID)
	assert.Equal(t, "characters-hero", characters[1].ID)
	assert.Equal(t, "characters-sidekick", characters[2].ID)
	assert.Equal(t, 2, characters[2].Order)

	require.Len(t, world, 1)
	assert.Equal(t, "The city", world[0].Content)
}

func TestImport_WritesMetadata(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/01.md": "one",
		"drafts/chapter-2/02.md": "two",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	var pm models.LocalProjectMetadata
	found, err := readJSON(h, models.LocalProjectFile, &pm)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, p.Projects[0].ID, pm.ID)
	assert.Equal(t, models.StorageLocal, pm.StorageType)

	var sm models.LocalStoryMetadata
	found, err = readJSON(h, models.LocalStoryFile, &sm)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, sm.Chapters, 2)
	assert.Equal(t, "chapter-2", sm.Chapters[1].ID)
	assert.Equal(t, []string{"02"}, sm.Chapters[1].SnippetIDs)
}

func TestImport_DuplicateSnippetNames(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/01-opening.md": "first opening",
		"drafts/chapter-2/01-opening.md": "second opening",
	})
	im := newTestImporter()
	p, err := im.Import(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, p.Snippets, 2)
	assert.Equal(t, []string{"01-opening"}, p.Chapters[0].SnippetIDs)
	assert.Equal(t, []string{"chapter-2-01-opening"}, p.Chapters[1].SnippetIDs)
	byID := map[string]models.Snippet{}
	for _, s := range p.Snippets {
		byID[s.ID] = s
	}
	assert.Contains(t, byID["01-opening"].Content, "first opening")
	assert.Equal(t, "chapter-1", byID["01-opening"].ChapterID)
	assert.Contains(t, byID["chapter-2-01-opening"].Content, "second opening")

	_, err = h.FS.Stat("drafts/chapter-2/01-opening.md")
	assert.True(t, localfs.IsNotFound(err), "file renamed to its new id")
	data, err := util.ReadFile(h.FS, "drafts/chapter-2/chapter-2-01-opening.md")
	require.NoError(t, err)
	assert.Equal(t, "second opening", string(data))

	var sm models.LocalStoryMetadata
	_, err = readJSON(h, models.LocalStoryFile, &sm)
	require.NoError(t, err)
	assert.Equal(t, []string{"chapter-2-01-opening"}, sm.Chapters[1].SnippetIDs)

	again, err := im.Load(context.Background(), h)
	require.NoError(t, err)
	assert.Len(t, again.Snippets, 2, "renamed layout reloads without collisions")
}

func TestImport_DuplicateSnippetNameTaken(t *testing.T) {
	h := newHandle(t, "book", map[string]string{
		"drafts/chapter-1/01.md":           "one",
		"drafts/chapter-2/01.md":           "dup",
		"drafts/chapter-2/chapter-2-01.md": "existing",
	})
	p, err := newTestImporter().Import(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, []string{"chapter-2-01"}, p.Chapters[1].SnippetIDs)
	require.Len(t, p.Snippets, 2)
	data, err := util.ReadFile(h.FS, "drafts/chapter-2/01.md")
	require.NoError(t, err)
	assert.Equal(t, "dup", string(data), "skipped file left on disk")
}

func TestImport_StableAcrossRuns(t *testing.T) {
	h := newHandle(t, "My Novel!", map[string]string{"drafts/chapter-1/01.md": "one"})
	im := newTestImporter()
	first, err := im.Import(context.Background(), h)
	require.NoError(t, err)
	second, err := im.Import(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, "local_my-novel", first.Projects[0].ID)
	assert.Equal(t, first.Projects[0].ID, second.Projects[0].ID)
	assert.Equal(t, first.Stories[0].ID, second.Stories[0].ID)
	assert.Equal(t, first.Chapters[0].Color, second.Chapters[0].Color)
}

func TestLoad(t *testing.T) {
	t.Run("uses metadata titles and ids", func(t *testing.T) {
		h := newHandle(t, "book", map[string]string{
			"drafts/chapter-1/01.md": "one",
			"drafts/chapter-2/01.md": "two",
		})
		im := newTestImporter()
		_, err := im.Import(context.Background(), h)
		require.NoError(t, err)

		sm := models.LocalStoryMetadata{
			ID:        "story-from-meta",
			ProjectID: "project-from-meta",
			Title:     "Renamed Story",
			Chapters:  []models.LocalChapterMetadata{{ID: "chapter-1", Title: "Prologue", Color: "#000000"}},
			UpdatedAt: "2025-02-01T00:00:00.000Z",
		}
		require.NoError(t, WriteJSON(h, models.LocalStoryFile, sm))
		pm := models.LocalProjectMetadata{ID: "project-from-meta", Name: "Book", StoryIDs: []string{"story-from-meta"}}
		require.NoError(t, WriteJSON(h, models.LocalProjectFile, pm))

		p, err := im.Load(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, "project-from-meta", p.Projects[0].ID)
		assert.Equal(t, models.Timestamp(fixedNow), p.Projects[0].UpdatedAt, "missing stamp falls back to now")
		assert.Equal(t, "Renamed Story", p.Stories[0].Title)
		require.Len(t, p.Chapters, 2)
		assert.Equal(t, "Prologue", p.Chapters[0].Title)
		assert.Equal(t, "#000000", p.Chapters[0].Color)
		assert.Equal(t, "Chapter 2", p.Chapters[1].Title, "folders without metadata keep derived titles")
		assert.Equal(t, "story-from-meta", p.Snippets[0].StoryID)
	})

	t.Run("falls back to import without metadata", func(t *testing.T) {
		h := newHandle(t, "book", map[string]string{"drafts/chapter-1/01.md": "one"})
		p, err := newTestImporter().Load(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, "local_book", p.Projects[0].ID)
		assert.Len(t, p.Snippets, 1)
	})

	t.Run("unreadable metadata fails the load", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "drafts/chapter-1/01.md", []byte("one"), 0o644))
		require.NoError(t, util.WriteFile(fs, models.LocalProjectFile, []byte(`{"id":"p"}`), 0o644))
		h := localfs.New("book", deniedFS{Filesystem: fs, denied: models.LocalProjectFile})

		_, err := newTestImporter().Load(context.Background(), h)
		require.Error(t, err)
		assert.True(t, localfs.IsPermission(err))
		_, statErr := fs.Stat(models.LocalStoryFile)
		assert.True(t, localfs.IsNotFound(statErr), "no re-import ran")
	})

	t.Run("falls back on malformed metadata", func(t *testing.T) {
		h := newHandle(t, "book", map[string]string{
			"drafts/chapter-1/01.md": "one",
			models.LocalProjectFile:  "{broken",
		})
		p, err := newTestImporter().Load(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, "local_book", p.Projects[0].ID)
	})
}

// deniedFS refuses to open one path.
type deniedFS struct {
	billy.Filesystem
	denied string
}

func (d deniedFS) Open(name string) (billy.File, error) {
	if name == d.denied {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Filesystem.Open(name)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my-novel", Slug("My Novel!"))
	assert.Equal(t, "roman-été", Slug("Roman été"))
	assert.Empty(t, Slug("***"))
	assert.Equal(t, "local_project", deriveIDs("***").project)
}
