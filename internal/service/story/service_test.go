package story

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yarny/internal/domain"
	models "yarny/internal/domain/models/story"
	storySvc "yarny/internal/domain/services/story"
	"yarny/internal/localfs"
	"yarny/internal/repository/memory"
	"yarny/internal/service/conflict"
	"yarny/internal/service/importer"
	"yarny/internal/service/mirror"
	"yarny/internal/service/paths"
	"yarny/internal/service/remote"
	"yarny/internal/store"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

// flakyFiles fails every write while failWrites is set.
type flakyFiles struct {
	*memory.RemoteFiles
	failWrites bool
}

func (f *flakyFiles) WriteFile(ctx context.Context, req *models.WriteFileRequest) (*models.WriteFileResult, error) {
	if f.failWrites {
		return nil, errors.New("remote unavailable")
	}
	return f.RemoteFiles.WriteFile(ctx, req)
}

type fixture struct {
	svc     *Service
	store   *store.Store
	files   *flakyFiles
	helpers *remote.Helpers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := &flakyFiles{RemoteFiles: memory.NewRemoteFiles(0)}
	helpers := remote.New(files, 0, logger)
	st := store.New()
	svc := NewService(st, helpers, mirror.NewOrchestrator(logger), conflict.New(files, logger), importer.New(nil, logger), logger)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, store: st, files: files, helpers: helpers}
}

// driveStory creates a remote project and returns its story id.
func (f *fixture) driveStory(t *testing.T) string {
	t.Helper()
	project, err := f.svc.CreateProject(context.Background(), &storySvc.CreateProjectRequest{Name: "Novel", StoryTitle: "Book One"})
	require.NoError(t, err)
	require.Len(t, project.StoryIDs, 1)
	return project.StoryIDs[0]
}

func localHandle(t *testing.T, files map[string]string) *localfs.Handle {
	t.Helper()
	fs := memfs.New()
	for rel, content := range files {
		require.NoError(t, util.WriteFile(fs, rel, []byte(content), 0o644))
	}
	return localfs.New("my-novel", fs)
}

func readFile(t *testing.T, h *localfs.Handle, rel string) string {
	t.Helper()
	data, err := util.ReadFile(h.FS, rel)
	require.NoError(t, err)
	return string(data)
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	project, err := f.svc.CreateProject(ctx, &storySvc.CreateProjectRequest{Name: "  Novel  "})
	require.NoError(t, err)
	assert.Equal(t, "Novel", project.Name)
	assert.Equal(t, models.StorageDrive, project.StorageType)
	assert.Equal(t, project.ID, project.DriveFolderID)

	st := f.store.Snapshot()
	story := st.Stories[project.StoryIDs[0]]
	require.NotNil(t, story)
	assert.Equal(t, defaultStoryTitle, story.Title)
	assert.Equal(t, story.ID, story.DriveFileID)

	doc, err := f.helpers.ReadProjectJSON(ctx, story.DriveFileID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, defaultStoryTitle, doc.Name)

	_, err = f.svc.CreateProject(ctx, &storySvc.CreateProjectRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSnippet_RemoteFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := f.driveStory(t)
	chapter, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID})
	require.NoError(t, err)

	before := f.store.Snapshot()
	f.files.failWrites = true
	_, err = f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Content: "lost"})
	require.Error(t, err)
	assert.Same(t, before, f.store.Snapshot())

	f.files.failWrites = false
	snippet, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Content: "kept"})
	require.NoError(t, err)
	assert.Equal(t, []string{snippet.ID}, f.store.Snapshot().Chapters[chapter.ID].SnippetIDs)
}

func TestDriveChapterAndSnippetLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := f.driveStory(t)

	var chapters []*models.Chapter
	for _, title := range []string{"One", "Two", "Three"} {
		c, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID, Title: title})
		require.NoError(t, err)
		assert.NotEmpty(t, c.DriveFolderID)
		chapters = append(chapters, c)
	}

	first, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapters[1].ID, Title: "Open", Content: "It began."})
	require.NoError(t, err)
	second, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapters[1].ID, Content: "Then more."})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)
	assert.NotEmpty(t, first.DriveFileID)

	saved, err := f.svc.SaveSnippet(ctx, &storySvc.SaveSnippetRequest{SnippetID: first.ID, Content: "It began again."})
	require.NoError(t, err)
	assert.Equal(t, first.DriveFileID, saved.DriveFileID, "the document is overwritten in place")
	doc, err := f.files.ReadFile(ctx, saved.DriveFileID)
	require.NoError(t, err)
	assert.Equal(t, "It began again.", doc.Content)

	data, err := f.helpers.ReadDataJSON(ctx, storyID)
	require.NoError(t, err)
	assert.Equal(t, "It began again.", data.Snippets[first.ID].Body)
	assert.Len(t, data.Groups, 3)

	require.NoError(t, f.svc.DeleteSnippet(ctx, first.ID))
	st := f.store.Snapshot()
	assert.NotContains(t, st.Snippets, first.ID)
	assert.Equal(t, 0, st.Snippets[second.ID].Order)
	_, err = f.files.ReadFile(ctx, first.DriveFileID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.svc.DeleteChapter(ctx, chapters[1].ID))
	st = f.store.Snapshot()
	assert.Equal(t, []string{chapters[0].ID, chapters[2].ID}, st.Stories[storyID].ChapterIDs)
	assert.Equal(t, 1, st.Chapters[chapters[2].ID].Order)
	assert.NotContains(t, st.Snippets, second.ID)

	data, err = f.helpers.ReadDataJSON(ctx, storyID)
	require.NoError(t, err)
	assert.Len(t, data.Groups, 2)
	assert.Empty(t, data.Snippets)
	_, err = f.files.ReadFile(ctx, second.DriveFileID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "chapter folder deleted with its documents")

	assert.ErrorIs(t, f.svc.DeleteChapter(ctx, "missing"), domain.ErrNotFound)
}

func TestDeletes_PublishContiguousOrdersOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := f.driveStory(t)

	var chapters []*models.Chapter
	for range 3 {
		c, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID})
		require.NoError(t, err)
		chapters = append(chapters, c)
	}
	var snippets []*models.Snippet
	for range 3 {
		sn, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapters[0].ID, Content: "text"})
		require.NoError(t, err)
		snippets = append(snippets, sn)
	}

	var published []*store.State
	f.store.Subscribe(func(_, next *store.State) {
		published = append(published, next)
	})

	require.NoError(t, f.svc.DeleteSnippet(ctx, snippets[0].ID))
	require.Len(t, published, 1)
	st := published[0]
	assert.NotContains(t, st.Snippets, snippets[0].ID)
	assert.Equal(t, 0, st.Snippets[snippets[1].ID].Order)
	assert.Equal(t, 1, st.Snippets[snippets[2].ID].Order)

	require.NoError(t, f.svc.DeleteChapter(ctx, chapters[0].ID))
	require.Len(t, published, 2)
	st = published[1]
	assert.NotContains(t, st.Chapters, chapters[0].ID)
	assert.Equal(t, 0, st.Chapters[chapters[1].ID].Order)
	assert.Equal(t, 1, st.Chapters[chapters[2].ID].Order)
}

func TestScanRemoteProject_ReproducesStructure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := f.driveStory(t)
	chapter, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID, Title: "Arrival"})
	require.NoError(t, err)
	snippet, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Content: "Hello"})
	require.NoError(t, err)
	projectID := f.store.Snapshot().Stories[storyID].ProjectID

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fresh := store.New()
	other := NewService(fresh, f.helpers, mirror.NewOrchestrator(logger), conflict.New(f.files, logger), importer.New(nil, logger), logger)

	st, err := other.ScanRemoteProject(ctx, projectID, "Novel")
	require.NoError(t, err)
	assert.Equal(t, []string{storyID}, st.Projects[projectID].StoryIDs)
	assert.Equal(t, "Book One", st.Stories[storyID].Title)
	assert.Equal(t, []string{chapter.ID}, st.Stories[storyID].ChapterIDs)
	assert.Equal(t, "Hello", st.Snippets[snippet.ID].Content)

	_, err = other.ScanRemoteProject(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConflictResolution(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *models.Snippet) {
		f := newFixture(t)
		storyID := f.driveStory(t)
		chapter, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID})
		require.NoError(t, err)
		snippet, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Content: "mine"})
		require.NoError(t, err)

		c, err := f.svc.CheckConflict(ctx, snippet.ID)
		require.NoError(t, err)
		require.Nil(t, c)

		_, err = f.files.WriteFile(ctx, &models.WriteFileRequest{FileID: snippet.DriveFileID, Content: "theirs"})
		require.NoError(t, err)
		c, err = f.svc.CheckConflict(ctx, snippet.ID)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "mine", c.LocalContent)
		assert.Equal(t, "theirs", c.DriveContent)
		return f, snippet
	}

	t.Run("accept remote", func(t *testing.T) {
		f, snippet := setup(t)
		resolved, err := f.svc.ResolveConflict(ctx, &storySvc.ResolveConflictRequest{SnippetID: snippet.ID, Resolution: models.ResolveAcceptRemote})
		require.NoError(t, err)
		assert.Equal(t, "theirs", resolved.Content)
		assert.Equal(t, "theirs", f.store.Snapshot().Snippets[snippet.ID].Content)

		c, err := f.svc.CheckConflict(ctx, snippet.ID)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("keep local", func(t *testing.T) {
		f, snippet := setup(t)
		resolved, err := f.svc.ResolveConflict(ctx, &storySvc.ResolveConflictRequest{SnippetID: snippet.ID, Resolution: models.ResolveKeepLocal})
		require.NoError(t, err)
		assert.Equal(t, "mine", resolved.Content)
		doc, err := f.files.ReadFile(ctx, snippet.DriveFileID)
		require.NoError(t, err)
		assert.Equal(t, "mine", doc.Content)

		c, err := f.svc.CheckConflict(ctx, snippet.ID)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("unknown resolution", func(t *testing.T) {
		f, snippet := setup(t)
		_, err := f.svc.ResolveConflict(ctx, &storySvc.ResolveConflictRequest{SnippetID: snippet.ID, Resolution: "both"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestDriveNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := f.driveStory(t)

	note, err := f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{StoryID: storyID, Kind: models.NotePeople, Title: "Ada", Content: "Mathematician"})
	require.NoError(t, err)
	assert.Equal(t, 0, note.Order)

	doc, err := f.helpers.ReadNotesJSON(ctx, storyID)
	require.NoError(t, err)
	assert.Equal(t, "Mathematician", doc.Notes[note.ID].Body)

	updated, err := f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{NoteID: note.ID, StoryID: storyID, Kind: models.NotePeople, Title: "Ada", Content: "Countess"})
	require.NoError(t, err)
	assert.Equal(t, note.ID, updated.ID)
	assert.Equal(t, "Countess", updated.Content)

	_, err = f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{NoteID: note.ID, StoryID: storyID, Kind: models.NotePlaces})
	assert.ErrorIs(t, err, domain.ErrValidation, "a note keeps its kind")
	_, err = f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{StoryID: storyID, Kind: "villains"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.svc.DeleteNote(ctx, note.ID))
	assert.NotContains(t, f.store.Snapshot().Notes, note.ID)
	doc, err = f.helpers.ReadNotesJSON(ctx, storyID)
	require.NoError(t, err)
	assert.Empty(t, doc.Notes)

	assert.ErrorIs(t, f.svc.DeleteNote(ctx, note.ID), domain.ErrNotFound)
}

func TestLocalLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := localHandle(t, map[string]string{
		"drafts/chapter-1/01-opening.md": "The morning sun...",
	})

	st, err := f.svc.ImportLocal(ctx, h)
	require.NoError(t, err)
	storyID := "local_my-novel_story"
	require.Contains(t, st.Stories, storyID)
	assert.Equal(t, "local_my-novel", st.ActiveProjectID)

	chapter, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID})
	require.NoError(t, err)
	assert.Equal(t, "chapter-2", chapter.ID)
	assert.Equal(t, "Chapter 2", chapter.Title)
	_, err = h.FS.Stat("drafts/chapter-2")
	require.NoError(t, err)

	snippet, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Title: "The Storm", Content: "Rain."})
	require.NoError(t, err)
	assert.Equal(t, "01-the-storm", snippet.ID)
	assert.Equal(t, "---\ntitle: The Storm\n---\nRain.", readFile(t, h, "drafts/chapter-2/01-the-storm.md"))

	_, err = f.svc.SaveSnippet(ctx, &storySvc.SaveSnippetRequest{SnippetID: snippet.ID, Content: "Rain fell."})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(readFile(t, h, "drafts/chapter-2/01-the-storm.md"), "Rain fell."))

	var meta models.LocalStoryMetadata
	require.NoError(t, json.Unmarshal([]byte(readFile(t, h, models.LocalStoryFile)), &meta))
	require.Len(t, meta.Chapters, 2)
	assert.Equal(t, []string{"01-the-storm"}, meta.Chapters[1].SnippetIDs)

	require.NoError(t, f.svc.DeleteChapter(ctx, "chapter-1"))
	_, err = h.FS.Stat("drafts/chapter-1")
	assert.True(t, localfs.IsNotFound(err))
	st = f.store.Snapshot()
	assert.Equal(t, []string{"chapter-2"}, st.Stories[storyID].ChapterIDs)
	assert.Equal(t, 0, st.Chapters["chapter-2"].Order)
	assert.NotContains(t, st.Snippets, "01-opening")

	reimported, err := importer.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Import(ctx, h)
	require.NoError(t, err)
	require.Len(t, reimported.Snippets, 1)
	assert.Equal(t, "The Storm", reimported.Snippets[0].Title)
}

func TestLocalNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := localHandle(t, map[string]string{"drafts/chapter-1/01-a.md": "a"})
	_, err := f.svc.ImportLocal(ctx, h)
	require.NoError(t, err)
	storyID := "local_my-novel_story"

	first, err := f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{StoryID: storyID, Kind: models.NoteCharacters, Title: "Ada Lovelace", Content: "Mathematician"})
	require.NoError(t, err)
	assert.Equal(t, "characters-ada-lovelace", first.ID)
	assert.Equal(t, "---\ntitle: Ada Lovelace\n---\nMathematician", readFile(t, h, "Characters/ada-lovelace.md"))

	second, err := f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{StoryID: storyID, Kind: models.NoteCharacters, Title: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "characters-ada-lovelace-2", second.ID)
	assert.Equal(t, 1, second.Order)

	var order []string
	require.NoError(t, json.Unmarshal([]byte(readFile(t, h, "Characters/_order.json")), &order))
	assert.Equal(t, []string{"ada-lovelace", "ada-lovelace-2"}, order)

	require.NoError(t, f.svc.DeleteNote(ctx, first.ID))
	_, err = h.FS.Stat("Characters/ada-lovelace.md")
	assert.True(t, localfs.IsNotFound(err))
	require.NoError(t, json.Unmarshal([]byte(readFile(t, h, "Characters/_order.json")), &order))
	assert.Equal(t, []string{"ada-lovelace-2"}, order)
}

func TestLocalProjectWithoutGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.UpsertEntities(&models.Payload{
		Projects: []models.Project{{ID: "p", Name: "P", StoryIDs: []string{"s"}, StorageType: models.StorageLocal}},
		Stories:  []models.Story{{ID: "s", ProjectID: "p", Title: "S"}},
	})

	_, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: "s"})
	assert.ErrorIs(t, err, domain.ErrPermission)

	c, err := f.svc.CheckConflict(ctx, "missing")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportStory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	backup := localfs.New("backup", memfs.New())
	f.svc.mirror.Enable(backup)

	storyID := f.driveStory(t)
	chapter, err := f.svc.CreateChapter(ctx, &storySvc.CreateChapterRequest{StoryID: storyID, Title: "Opening"})
	require.NoError(t, err)
	snippet, err := f.svc.CreateSnippet(ctx, &storySvc.CreateSnippetRequest{ChapterID: chapter.ID, Content: "It was dark."})
	require.NoError(t, err)
	note, err := f.svc.SaveNote(ctx, &storySvc.SaveNoteRequest{StoryID: storyID, Kind: models.NotePlaces, Title: "Harbor", Content: "Fog."})
	require.NoError(t, err)

	export, err := f.svc.ExportStory(ctx, storyID)
	require.NoError(t, err)
	assert.Equal(t, "book-one-20250301-093000.zip", export.Name)
	assert.True(t, export.Mirrored)

	r, err := zip.NewReader(bytes.NewReader(export.Data), int64(len(export.Data)))
	require.NoError(t, err)
	contents := map[string]string{}
	for _, file := range r.File {
		rc, err := file.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[file.Name] = string(data)
	}
	assert.Equal(t, "Book One\n\nOpening\n\nIt was dark.\n", contents[paths.StoryDocument(storyID)])
	assert.Equal(t, "It was dark.", contents[paths.Snippet(storyID, snippet.ID)])
	assert.Equal(t, "Fog.", contents[paths.Note(storyID, "places", note.ID)])
	assert.Contains(t, contents[paths.Metadata(storyID, paths.MetadataStory)], `"wordCount": 3`)

	mirrored, err := util.ReadFile(backup.FS, paths.Export(export.Name))
	require.NoError(t, err)
	assert.Equal(t, export.Data, mirrored)

	_, err = f.svc.ExportStory(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
