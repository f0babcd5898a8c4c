package story

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/service/converter"
	"yarny/internal/service/importer"
	"yarny/internal/store"
)

// The local write path edits the same layout the importer reads:
// drafts/chapter-<N>/<id>.md for snippets, the note folders for notes, and
// yarny-story.json for chapter titles and colors.

const localDrafts = "drafts"

func localChapterDir(chapterID string) string {
	return path.Join(localDrafts, chapterID)
}

func localSnippetPath(chapterID, snippetID string) string {
	return path.Join(localChapterDir(chapterID), snippetID+".md")
}

func (s *Service) createLocalChapter(t *target, chapterID string) error {
	dir := localChapterDir(chapterID)
	if err := t.handle.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func (s *Service) removeLocalChapter(t *target, chapterID string) error {
	dir := localChapterDir(chapterID)
	if err := util.RemoveAll(t.handle.FS, dir); err != nil && !localfs.IsNotFound(err) {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

// writeLocalStoryMetadata refreshes yarny-story.json from the preview.
func (s *Service) writeLocalStoryMetadata(t *target, preview *store.State) error {
	story, ok := preview.Stories[t.story.ID]
	if !ok {
		return fmt.Errorf("story %s missing from preview", t.story.ID)
	}
	chapters := make([]models.Chapter, 0, len(story.ChapterIDs))
	for _, c := range preview.ChaptersOf(story.ID) {
		chapters = append(chapters, *c)
	}
	return importer.WriteJSON(t.handle, models.LocalStoryFile, importer.StoryMetadata(story, chapters))
}

// writeLocalSnippet writes the snippet's file. A title other than the
// filename-derived id is kept in YAML front matter.
func (s *Service) writeLocalSnippet(t *target, snippet *models.Snippet) error {
	var fm converter.FrontMatter
	if snippet.Title != "" && snippet.Title != snippet.ID {
		fm.Title = snippet.Title
	}
	data, err := converter.JoinFrontMatter(fm, []byte(snippet.Content))
	if err != nil {
		return err
	}
	rel := localSnippetPath(snippet.ChapterID, snippet.ID)
	if err := util.WriteFile(t.handle.FS, rel, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (s *Service) removeLocalSnippet(t *target, snippet *models.Snippet) error {
	rel := localSnippetPath(snippet.ChapterID, snippet.ID)
	if err := t.handle.FS.Remove(rel); err != nil && !localfs.IsNotFound(err) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// uniqueLocalSnippetID builds "<NN>-<slug>" and adds a numeric suffix until
// neither the store nor the chapter folder has it.
func uniqueLocalSnippetID(t *target, st *store.State, chapterID string, position int, title string) string {
	base := importer.Slug(title)
	if base == "" {
		base = "snippet"
	}
	base = fmt.Sprintf("%02d-%s", position+1, base)
	id := base
	for i := 2; ; i++ {
		_, inStore := st.Snippets[id]
		_, statErr := t.handle.FS.Stat(localSnippetPath(chapterID, id))
		if !inStore && localfs.IsNotFound(statErr) {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}

// noteFolder returns the root-level folder holding notes of kind.
func noteFolder(kind models.NoteKind) (string, error) {
	for _, folder := range importer.NoteFolders {
		if folder.Kind == kind {
			return folder.Dir, nil
		}
	}
	return "", fmt.Errorf("no local folder for note kind %q", kind)
}

// noteBase strips the kind prefix the importer adds to note ids.
func noteBase(note *models.Note) string {
	return strings.TrimPrefix(note.ID, importer.NoteID(note.Kind, ""))
}

func (s *Service) writeLocalNote(t *target, note *models.Note) error {
	dir, err := noteFolder(note.Kind)
	if err != nil {
		return err
	}
	var fm converter.FrontMatter
	base := noteBase(note)
	if note.Title != "" && note.Title != base {
		fm.Title = note.Title
	}
	data, err := converter.JoinFrontMatter(fm, []byte(note.Content))
	if err != nil {
		return err
	}
	rel := path.Join(dir, base+".md")
	if err := util.WriteFile(t.handle.FS, rel, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (s *Service) removeLocalNote(t *target, note *models.Note) error {
	dir, err := noteFolder(note.Kind)
	if err != nil {
		return err
	}
	rel := path.Join(dir, noteBase(note)+".md")
	if err := t.handle.FS.Remove(rel); err != nil && !localfs.IsNotFound(err) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// writeLocalNoteOrder rewrites the kind's _order.json from the preview.
func (s *Service) writeLocalNoteOrder(t *target, preview *store.State, kind models.NoteKind) error {
	dir, err := noteFolder(kind)
	if err != nil {
		return err
	}
	bases := []string{}
	for _, note := range preview.NotesOf(t.story.ID, kind) {
		bases = append(bases, noteBase(note))
	}
	return importer.WriteJSON(t.handle, path.Join(dir, importer.NoteOrderFile), bases)
}
