// Package paths maps story entities to their canonical relative location
// inside a Yarny-owned mirror root.
//
// Layout:
//
//	stories/<storyId>/story.md
//	stories/<storyId>/metadata/{metadata,project,data,goal}.json
//	stories/<storyId>/notes/<category>/<noteId>.md
//	stories/<storyId>/notes/<category>/_order.json
//	stories/<storyId>/snippets/<snippetId>.md
//	stories/<storyId>/attachments/<attachmentId>
//	index/index.json
//	exports/<name>
//
// Paths always use forward slashes regardless of the host OS.
package paths

import (
	"fmt"
	"path"
	"strings"
)

// Kind identifies the entity a path is resolved for.
type Kind string

const (
	KindStoryRoot     Kind = "story-root"
	KindStoryDocument Kind = "story-document"
	KindMetadata      Kind = "metadata"
	KindSnippet       Kind = "snippet"
	KindNote          Kind = "note"
	KindNoteOrder     Kind = "note-order"
	KindAttachment    Kind = "attachment"
)

// MetadataKind names one of the JSON files under metadata/.
type MetadataKind string

const (
	MetadataStory   MetadataKind = "metadata"
	MetadataProject MetadataKind = "project"
	MetadataData    MetadataKind = "data"
	MetadataGoal    MetadataKind = "goal"
)

// Valid reports whether m is one of the known metadata files.
func (m MetadataKind) Valid() bool {
	switch m {
	case MetadataStory, MetadataProject, MetadataData, MetadataGoal:
		return true
	}
	return false
}

const (
	storiesDir     = "stories"
	indexFile      = "index/index.json"
	exportsDir     = "exports"
	storyDocument  = "story.md"
	metadataDir    = "metadata"
	snippetsDir    = "snippets"
	notesDir       = "notes"
	attachmentsDir = "attachments"
	noteOrderFile  = "_order.json"
)

// StoryRoot returns stories/<storyId>.
func StoryRoot(storyID string) string {
	return path.Join(storiesDir, safeSegment(storyID))
}

// StoryDocument returns the concatenated plain-text story file.
func StoryDocument(storyID string) string {
	return path.Join(StoryRoot(storyID), storyDocument)
}

// MetadataDir returns the story's metadata directory.
func MetadataDir(storyID string) string {
	return path.Join(StoryRoot(storyID), metadataDir)
}

// Metadata returns metadata/<kind>.json for the story.
func Metadata(storyID string, kind MetadataKind) string {
	return path.Join(MetadataDir(storyID), string(kind)+".json")
}

// SnippetsDir returns the story's snippet directory.
func SnippetsDir(storyID string) string {
	return path.Join(StoryRoot(storyID), snippetsDir)
}

// Snippet returns snippets/<snippetId>.md.
func Snippet(storyID, snippetID string) string {
	return path.Join(SnippetsDir(storyID), safeSegment(snippetID)+".md")
}

// NotesDir returns notes/<category> for the story.
func NotesDir(storyID, category string) string {
	return path.Join(StoryRoot(storyID), notesDir, safeSegment(category))
}

// Note returns notes/<category>/<noteId>.md.
func Note(storyID, category, noteID string) string {
	return path.Join(NotesDir(storyID, category), safeSegment(noteID)+".md")
}

// NoteOrder returns notes/<category>/_order.json.
func NoteOrder(storyID, category string) string {
	return path.Join(NotesDir(storyID, category), noteOrderFile)
}

// AttachmentsDir returns the story's attachment directory.
func AttachmentsDir(storyID string) string {
	return path.Join(StoryRoot(storyID), attachmentsDir)
}

// Attachment returns attachments/<attachmentId>. The id keeps its extension.
func Attachment(storyID, attachmentID string) string {
	return path.Join(AttachmentsDir(storyID), safeSegment(attachmentID))
}

// Index returns the global index file.
func Index() string {
	return indexFile
}

// Export returns exports/<name>.
func Export(name string) string {
	return path.Join(exportsDir, safeSegment(name))
}

// StoryDirs lists the directories scaffolded for every mirrored story.
func StoryDirs(storyID string) []string {
	return []string{
		StoryRoot(storyID),
		MetadataDir(storyID),
		SnippetsDir(storyID),
		path.Join(StoryRoot(storyID), notesDir),
		AttachmentsDir(storyID),
	}
}

// Resolve maps (story, kind, entity) to a canonical path. For KindNote and
// KindNoteOrder the entity is "<category>/<noteId>" and "<category>"
// respectively; for KindMetadata it is the metadata kind.
func Resolve(storyID string, kind Kind, entityID string) (string, error) {
	if storyID == "" {
		return "", fmt.Errorf("resolve %s: story id is required", kind)
	}
	switch kind {
	case KindStoryRoot:
		return StoryRoot(storyID), nil
	case KindStoryDocument:
		return StoryDocument(storyID), nil
	case KindMetadata:
		m := MetadataKind(entityID)
		if !m.Valid() {
			return "", fmt.Errorf("resolve metadata: unknown kind %q", entityID)
		}
		return Metadata(storyID, m), nil
	case KindSnippet:
		if entityID == "" {
			return "", fmt.Errorf("resolve snippet: id is required")
		}
		return Snippet(storyID, entityID), nil
	case KindNote:
		category, noteID, ok := strings.Cut(entityID, "/")
		if !ok || category == "" || noteID == "" {
			return "", fmt.Errorf("resolve note: expected <category>/<id>, got %q", entityID)
		}
		return Note(storyID, category, noteID), nil
	case KindNoteOrder:
		if entityID == "" {
			return "", fmt.Errorf("resolve note order: category is required")
		}
		return NoteOrder(storyID, entityID), nil
	case KindAttachment:
		if entityID == "" {
			return "", fmt.Errorf("resolve attachment: id is required")
		}
		return Attachment(storyID, entityID), nil
	default:
		return "", fmt.Errorf("resolve: unknown kind %q", kind)
	}
}

// safeSegment keeps an id inside its directory: separators become "-" and
// dot-only names are replaced.
func safeSegment(id string) string {
	s := strings.NewReplacer("/", "-", "\\", "-").Replace(id)
	if strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}
