package story

import (
	"context"

	models "yarny/internal/domain/models/story"
	"yarny/internal/localfs"
	"yarny/internal/store"
)

// CreateProjectRequest creates a Drive-backed project with one story.
type CreateProjectRequest struct {
	Name       string `json:"name"`
	StoryTitle string `json:"storyTitle"`
}

// CreateChapterRequest adds a chapter at the end of a story.
type CreateChapterRequest struct {
	StoryID string `json:"storyId"`
	Title   string `json:"title"`
}

// CreateSnippetRequest adds a snippet at the end of a chapter.
type CreateSnippetRequest struct {
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// SaveSnippetRequest replaces a snippet's content. A nil Title keeps the
// current one.
type SaveSnippetRequest struct {
	SnippetID string  `json:"snippetId"`
	Content   string  `json:"content"`
	Title     *string `json:"title,omitempty"`
}

// SaveNoteRequest creates or replaces a note.
type SaveNoteRequest struct {
	NoteID  string          `json:"noteId"`
	StoryID string          `json:"storyId"`
	Kind    models.NoteKind `json:"kind"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Order   *int            `json:"order,omitempty"`
}

// ResolveConflictRequest applies the user's choice on a snippet conflict.
type ResolveConflictRequest struct {
	SnippetID  string            `json:"snippetId"`
	Resolution models.Resolution `json:"resolution"`
}

// StoryExport is a zipped copy of one story.
type StoryExport struct {
	Name     string
	Data     []byte
	Mirrored bool
}

// StoryService performs every story mutation through the owning project's
// authoritative write path, then updates the store and the mirror.
type StoryService interface {
	// CreateProject creates a Drive-backed project and its first story
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error)

	// ScanRemoteProject reads a Drive project folder into the store
	ScanRemoteProject(ctx context.Context, folderID, name string) (*store.State, error)

	// CreateChapter appends a chapter to a story
	CreateChapter(ctx context.Context, req *CreateChapterRequest) (*models.Chapter, error)

	// DeleteChapter removes a chapter and its snippets
	DeleteChapter(ctx context.Context, chapterID string) error

	// CreateSnippet appends a snippet to a chapter
	CreateSnippet(ctx context.Context, req *CreateSnippetRequest) (*models.Snippet, error)

	// SaveSnippet replaces a snippet's content
	SaveSnippet(ctx context.Context, req *SaveSnippetRequest) (*models.Snippet, error)

	// DeleteSnippet removes a snippet
	DeleteSnippet(ctx context.Context, snippetID string) error

	// SaveNote creates or replaces a note
	SaveNote(ctx context.Context, req *SaveNoteRequest) (*models.Note, error)

	// DeleteNote removes a note
	DeleteNote(ctx context.Context, noteID string) error

	// CheckConflict compares a snippet against its remote document
	CheckConflict(ctx context.Context, snippetID string) (*models.Conflict, error)

	// ResolveConflict keeps the local content or accepts the remote one
	ResolveConflict(ctx context.Context, req *ResolveConflictRequest) (*models.Snippet, error)

	// ExportStory zips a story's text, metadata and notes
	ExportStory(ctx context.Context, storyID string) (*StoryExport, error)

	// LoadRemoteStory reads a Drive-backed story into the store
	LoadRemoteStory(ctx context.Context, storyID string) (*store.State, error)

	// ImportLocal scans a granted directory into the store
	ImportLocal(ctx context.Context, h *localfs.Handle) (*store.State, error)

	// LoadLocal reads a granted directory, preferring its metadata caches
	LoadLocal(ctx context.Context, h *localfs.Handle) (*store.State, error)
}
