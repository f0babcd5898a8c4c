package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-billy/v5/util"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/service/paths"
)

// Repository writes the Yarny-owned mirror layout into a granted directory.
// Every method returns the raw error; deciding whether a failure matters is
// the caller's job.
type Repository struct {
	handle *localfs.Handle
}

// NewRepository binds a repository to a granted directory.
func NewRepository(h *localfs.Handle) *Repository {
	return &Repository{handle: h}
}

// Handle returns the bound directory.
func (r *Repository) Handle() *localfs.Handle {
	return r.handle
}

// EnsureStoryStructure creates the story's directory scaffolding.
func (r *Repository) EnsureStoryStructure(storyID string) error {
	for _, dir := range paths.StoryDirs(storyID) {
		if err := r.handle.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// WriteStoryDocument writes the concatenated plain-text story.
func (r *Repository) WriteStoryDocument(storyID, content string) error {
	return r.writeFile(paths.StoryDocument(storyID), []byte(content))
}

// WriteMetadataJSON writes one of the metadata/<kind>.json files.
func (r *Repository) WriteMetadataJSON(storyID string, kind paths.MetadataKind, v any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown metadata kind %q", kind)
	}
	return r.writeJSON(paths.Metadata(storyID, kind), v)
}

// WriteSnippet writes snippets/<id>.md with the snippet's plain text.
func (r *Repository) WriteSnippet(storyID string, snippet *models.Snippet) error {
	return r.writeFile(paths.Snippet(storyID, snippet.ID), []byte(snippet.Content))
}

// DeleteSnippet removes a snippet file. A file that is already gone is not
// an error.
func (r *Repository) DeleteSnippet(storyID, snippetID string) error {
	return r.remove(paths.Snippet(storyID, snippetID))
}

// WriteNote writes notes/<kind>/<id>.md.
func (r *Repository) WriteNote(note *models.Note) error {
	return r.writeFile(paths.Note(note.StoryID, string(note.Kind), note.ID), []byte(note.Content))
}

// DeleteNote removes a note file. A file that is already gone is not an
// error.
func (r *Repository) DeleteNote(storyID string, kind models.NoteKind, noteID string) error {
	return r.remove(paths.Note(storyID, string(kind), noteID))
}

// WriteNoteOrder writes notes/<kind>/_order.json.
func (r *Repository) WriteNoteOrder(storyID string, kind models.NoteKind, noteIDs []string) error {
	if noteIDs == nil {
		noteIDs = []string{}
	}
	return r.writeJSON(paths.NoteOrder(storyID, string(kind)), noteIDs)
}

// WriteAttachment stores an opaque attachment blob.
func (r *Repository) WriteAttachment(storyID, attachmentID string, data []byte) error {
	return r.writeFile(paths.Attachment(storyID, attachmentID), data)
}

// WriteIndex writes the global index/index.json.
func (r *Repository) WriteIndex(index *Index) error {
	return r.writeJSON(paths.Index(), index)
}

// WriteExport writes exports/<name>.
func (r *Repository) WriteExport(name string, data []byte) error {
	return r.writeFile(paths.Export(name), data)
}

func (r *Repository) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	return r.writeFile(rel, append(data, '\n'))
}

func (r *Repository) writeFile(rel string, data []byte) error {
	if err := util.WriteFile(r.handle.FS, rel, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (r *Repository) remove(rel string) error {
	if err := r.handle.FS.Remove(rel); err != nil && !localfs.IsNotFound(err) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}
