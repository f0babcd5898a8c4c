// Package remote reads and writes a story's remote JSON-of-record
// (data.json and project.json) through the opaque remote file service.
//
// A story lives in its own remote folder (Story.DriveFileID). Chapters are
// sub-folders of it (Chapter.DriveFolderID) holding one plain-text document
// per snippet (Snippet.DriveFileID).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"yarny/internal/config"
	models "yarny/internal/domain/models/story"
	storyRepo "yarny/internal/domain/repositories/story"
)

const (
	DataFile    = "data.json"
	ProjectFile = "project.json"
	NotesFile   = "notes.json"
)

// Helpers wraps the remote file service with story-level operations.
type Helpers struct {
	files    storyRepo.RemoteFileService
	maxPages int
	logger   *slog.Logger
}

// New creates the helpers. maxPages <= 0 uses the default page bound.
func New(files storyRepo.RemoteFileService, maxPages int, logger *slog.Logger) *Helpers {
	if maxPages <= 0 {
		maxPages = config.DefaultMaxListPages
	}
	return &Helpers{files: files, maxPages: maxPages, logger: logger}
}

// Files exposes the underlying remote file service.
func (h *Helpers) Files() storyRepo.RemoteFileService {
	return h.files
}

// ListAll pages through a folder. After maxPages pages the listing is
// accepted as partial and a warning is logged.
func (h *Helpers) ListAll(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	var files []models.RemoteFile
	token := ""
	for page := 0; page < h.maxPages; page++ {
		list, err := h.files.ListFiles(ctx, folderID, token)
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		files = append(files, list.Files...)
		token = list.NextPageToken
		if token == "" {
			return files, nil
		}
	}
	h.logger.Warn("folder listing truncated, using partial results",
		"folder_id", folderID,
		"max_pages", h.maxPages,
		"files", len(files),
	)
	return files, nil
}

// Find returns the first non-folder file named name in the folder, or nil.
func (h *Helpers) Find(ctx context.Context, folderID, name string) (*models.RemoteFile, error) {
	files, err := h.ListAll(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].Name == name && files[i].MimeType != models.MimeFolder {
			return &files[i], nil
		}
	}
	return nil, nil
}

// ReadDataJSON returns the story's data.json. A story without one yields an
// empty document.
func (h *Helpers) ReadDataJSON(ctx context.Context, storyFolderID string) (*models.DataDocument, error) {
	doc := &models.DataDocument{}
	if _, err := h.readJSON(ctx, storyFolderID, DataFile, doc); err != nil {
		return nil, err
	}
	if doc.Groups == nil {
		doc.Groups = map[string]models.DataGroup{}
	}
	if doc.Snippets == nil {
		doc.Snippets = map[string]models.DataSnippet{}
	}
	return doc, nil
}

// WriteDataJSON overwrites (or creates) the story's data.json.
func (h *Helpers) WriteDataJSON(ctx context.Context, storyFolderID string, doc *models.DataDocument) (*models.WriteFileResult, error) {
	return h.writeJSON(ctx, storyFolderID, DataFile, doc)
}

// ReadProjectJSON returns the story's project.json, or nil when absent.
func (h *Helpers) ReadProjectJSON(ctx context.Context, storyFolderID string) (*models.ProjectDocument, error) {
	doc := &models.ProjectDocument{}
	found, err := h.readJSON(ctx, storyFolderID, ProjectFile, doc)
	if err != nil || !found {
		return nil, err
	}
	return doc, nil
}

// WriteProjectJSON overwrites (or creates) the story's project.json.
func (h *Helpers) WriteProjectJSON(ctx context.Context, storyFolderID string, doc *models.ProjectDocument) (*models.WriteFileResult, error) {
	return h.writeJSON(ctx, storyFolderID, ProjectFile, doc)
}

// ReadNotesJSON returns the story's notes.json. A story without one yields an
// empty document.
func (h *Helpers) ReadNotesJSON(ctx context.Context, storyFolderID string) (*models.NotesDocument, error) {
	doc := &models.NotesDocument{}
	if _, err := h.readJSON(ctx, storyFolderID, NotesFile, doc); err != nil {
		return nil, err
	}
	if doc.Notes == nil {
		doc.Notes = map[string]models.DataNote{}
	}
	return doc, nil
}

// WriteNotesJSON overwrites (or creates) the story's notes.json.
func (h *Helpers) WriteNotesJSON(ctx context.Context, storyFolderID string, doc *models.NotesDocument) (*models.WriteFileResult, error) {
	return h.writeJSON(ctx, storyFolderID, NotesFile, doc)
}

func (h *Helpers) readJSON(ctx context.Context, folderID, name string, v any) (bool, error) {
	file, err := h.Find(ctx, folderID, name)
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, nil
	}
	content, err := h.files.ReadFile(ctx, file.ID)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(content.Content), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (h *Helpers) writeJSON(ctx context.Context, folderID, name string, v any) (*models.WriteFileResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	existing, err := h.Find(ctx, folderID, name)
	if err != nil {
		return nil, err
	}
	req := &models.WriteFileRequest{
		FileName:       name,
		Content:        string(data),
		ParentFolderID: folderID,
		MimeType:       models.MimeJSON,
	}
	if existing != nil {
		req.FileID = existing.ID
	}
	res, err := h.files.WriteFile(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	h.logger.Debug("remote json written",
		"folder_id", folderID,
		"file", name,
		"file_id", res.ID,
	)
	return res, nil
}

// WriteSnippetDocument writes the snippet's derived plain-text document into
// its chapter folder, overwriting the previous revision when the snippet
// already has one.
func (h *Helpers) WriteSnippetDocument(ctx context.Context, chapterFolderID string, snippet *models.Snippet) (*models.WriteFileResult, error) {
	name := snippet.Title
	if name == "" {
		name = snippet.ID
	}
	res, err := h.files.WriteFile(ctx, &models.WriteFileRequest{
		FileID:         snippet.DriveFileID,
		FileName:       name,
		Content:        snippet.Content,
		ParentFolderID: chapterFolderID,
		MimeType:       models.MimeText,
	})
	if err != nil {
		return nil, fmt.Errorf("write snippet %s: %w", snippet.ID, err)
	}
	return res, nil
}
