package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
)

// NoteOrderFile lists a note folder's files in display order.
const NoteOrderFile = "_order.json"

// NoteFolders maps root-level note folders to note kinds. The first two are
// the local-file variant, the rest mirror Drive projects.
var NoteFolders = []struct {
	Dir  string
	Kind models.NoteKind
}{
	{Dir: "Characters", Kind: models.NoteCharacters},
	{Dir: "Worldbuilding", Kind: models.NoteWorldbuilding},
	{Dir: "People", Kind: models.NotePeople},
	{Dir: "Places", Kind: models.NotePlaces},
	{Dir: "Things", Kind: models.NoteThings},
}

// NoteID prefixes the file's base name with its kind so that notes in
// different folders never collide.
func NoteID(kind models.NoteKind, base string) string {
	return string(kind) + "-" + base
}

// loadNotes reads every note folder that exists. Ignore patterns do not
// apply to notes.
func (im *Importer) loadNotes(ctx context.Context, h *localfs.Handle, storyID string) ([]models.Note, error) {
	var notes []models.Note
	for _, folder := range NoteFolders {
		loaded, err := im.loadNoteFolder(ctx, h, storyID, folder.Dir, folder.Kind)
		if err != nil {
			return nil, err
		}
		notes = append(notes, loaded...)
	}
	return notes, nil
}

func (im *Importer) loadNoteFolder(ctx context.Context, h *localfs.Handle, storyID, dir string, kind models.NoteKind) ([]models.Note, error) {
	entries, err := h.FS.ReadDir(dir)
	if err != nil {
		if localfs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var bases []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), ".md") {
			continue
		}
		bases = append(bases, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	slices.Sort(bases)
	bases = im.applyNoteOrder(h, dir, kind, bases)

	notes := make([]models.Note, 0, len(bases))
	for _, base := range bases {
		rel := path.Join(dir, base+".md")
		info, err := h.FS.Stat(rel)
		if err != nil {
			if localfs.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", rel, err)
		}
		data, err := util.ReadFile(h.FS, rel)
		if err != nil {
			if localfs.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		title, content, ok := im.convert(ctx, rel, data)
		if !ok {
			continue
		}
		if title == "" {
			title = base
		}
		notes = append(notes, models.Note{
			ID:        NoteID(kind, base),
			StoryID:   storyID,
			Kind:      kind,
			Order:     len(notes),
			Title:     title,
			Content:   content,
			UpdatedAt: models.Timestamp(modTime(info, im.now)),
		})
	}
	return notes, nil
}

// applyNoteOrder moves the names listed in _order.json to the front, in the
// listed order. Entries may be base names or full note ids. Unlisted files
// keep their lexical order after the listed ones.
func (im *Importer) applyNoteOrder(h *localfs.Handle, dir string, kind models.NoteKind, bases []string) []string {
	rel := path.Join(dir, NoteOrderFile)
	data, err := util.ReadFile(h.FS, rel)
	if err != nil {
		if !localfs.IsNotFound(err) {
			im.logger.Warn("note order unreadable, using file order",
				"path", rel,
				"error", err,
			)
		}
		return bases
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		im.logger.Warn("note order malformed, using file order",
			"path", rel,
			"error", err,
		)
		return bases
	}

	prefix := NoteID(kind, "")
	out := make([]string, 0, len(bases))
	used := make(map[string]bool, len(bases))
	for _, entry := range order {
		base := strings.TrimSuffix(strings.TrimPrefix(entry, prefix), ".md")
		if used[base] || !slices.Contains(bases, base) {
			continue
		}
		used[base] = true
		out = append(out, base)
	}
	for _, base := range bases {
		if !used[base] {
			out = append(out, base)
		}
	}
	return out
}
